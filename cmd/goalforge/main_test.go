package main

import "testing"

func TestRootCommand_Wiring(t *testing.T) {
	want := map[string]bool{
		"refine": false,
		"serve":  false,
		"goals":  false,
		"usage":  false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestGoalsSubcommands(t *testing.T) {
	want := map[string]bool{"list": false, "show": false, "delete": false}
	for _, cmd := range goalsCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("goals subcommand %q not registered", name)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("--config flag not registered")
	}
	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("--verbose flag not registered")
	}
}
