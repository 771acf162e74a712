package schema

import (
	"strings"
	"testing"
)

func validGoal() *RefinedGoal {
	return &RefinedGoal{
		RefinedGoal: "Run a half marathon in under two hours by June",
		KeyResults: []string{
			"Complete a 10k training run by end of March",
			"Run 30km per week through April",
			"Finish a practice half marathon in May",
		},
		ConfidenceScore: 8,
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	if err := Validate(validGoal()); err != nil {
		t.Fatalf("Validate returned error for valid goal: %v", err)
	}
}

func TestValidate_BoundaryScores(t *testing.T) {
	t.Parallel()

	for _, score := range []int{MinConfidence, MaxConfidence} {
		g := validGoal()
		g.ConfidenceScore = score
		if err := Validate(g); err != nil {
			t.Errorf("score %d should be valid: %v", score, err)
		}
	}
	for _, score := range []int{0, -1, 11, 100} {
		g := validGoal()
		g.ConfidenceScore = score
		if err := Validate(g); err == nil {
			t.Errorf("score %d should be invalid", score)
		}
	}
}

func TestValidate_KeyResultCardinality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int
		valid bool
	}{
		{0, false},
		{2, false},
		{3, true},
		{4, true},
		{5, true},
		{6, false},
	}

	for _, tt := range tests {
		g := validGoal()
		g.KeyResults = make([]string, tt.count)
		for i := range g.KeyResults {
			g.KeyResults[i] = "measurable milestone"
		}
		err := Validate(g)
		if tt.valid && err != nil {
			t.Errorf("%d key results should be valid: %v", tt.count, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("%d key results should be invalid", tt.count)
		}
	}
}

func TestValidate_EnumeratesAllViolations(t *testing.T) {
	t.Parallel()

	g := &RefinedGoal{
		RefinedGoal:     "   ",
		KeyResults:      []string{"ok", ""},
		ConfidenceScore: 0,
	}

	err := Validate(g)
	if err == nil {
		t.Fatal("expected validation error")
	}

	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}

	// Empty refined_goal, wrong cardinality, empty item, score out of range.
	if len(verr.Violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
	msg := verr.Error()
	for _, want := range []string{"refined_goal", "key_results must contain", "key_results[1]", "confidence_score"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	raw := `{"refined_goal":"Ship v1 by Q3","key_results":["a","b","c"],"confidence_score":7}`
	g, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.RefinedGoal != "Ship v1 by Q3" || len(g.KeyResults) != 3 || g.ConfidenceScore != 7 {
		t.Fatalf("unexpected goal: %+v", g)
	}

	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error for non-JSON input")
	}
	if _, err := Decode([]byte(`{"confidence_score":"high"}`)); err == nil {
		t.Fatal("expected decode error for mistyped field")
	}
}

func TestSentinel(t *testing.T) {
	t.Parallel()

	s := Sentinel()
	if s.RefinedGoal != "No goal provided" {
		t.Errorf("unexpected sentinel text: %q", s.RefinedGoal)
	}
	if len(s.KeyResults) != 0 {
		t.Errorf("sentinel key_results should be empty, got %v", s.KeyResults)
	}
	if s.ConfidenceScore != 0 {
		t.Errorf("sentinel confidence should be 0, got %d", s.ConfidenceScore)
	}
}
