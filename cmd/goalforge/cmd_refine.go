package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"goalforge/internal/goalstore"
)

var saveRefined bool

// refineCmd runs one refinement from the command line.
var refineCmd = &cobra.Command{
	Use:   "refine [text...]",
	Short: "Refine a free-text goal statement into a SMART goal",
	Long: `Sends the given text through the refinement pipeline and prints the
structured result as JSON. A guardrail-rejected input prints the
rejection message and exits non-zero.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")

		pipeline, tel, err := newPipeline()
		if err != nil {
			return err
		}
		defer tel.Close()

		result, err := pipeline.Refine(cmd.Context(), input)
		if err != nil {
			return err
		}

		if result.Rejected() {
			fmt.Fprintln(os.Stderr, result.Error)
			os.Exit(2)
		}

		out, err := json.MarshalIndent(result.Goal, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		if saveRefined {
			store, err := goalstore.NewStore(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			goalJSON, err := json.Marshal(result.Goal)
			if err != nil {
				return err
			}
			saved, err := store.Save(cmd.Context(), input, goalJSON)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved as %s\n", saved.ID)
		}
		return nil
	},
}

func init() {
	refineCmd.Flags().BoolVar(&saveRefined, "save", false, "persist the refined goal")
}
