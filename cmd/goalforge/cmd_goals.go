package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"goalforge/internal/goalstore"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage saved goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := goalstore.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		goals, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Println("no saved goals")
			return nil
		}
		for _, g := range goals {
			fmt.Printf("%s  %s  %s\n", g.ID, g.CreatedAt.Format("2006-01-02 15:04"), g.Input)
		}
		return nil
	},
}

var goalsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one saved goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := goalstore.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		saved, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(saved, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one saved goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := goalstore.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

func init() {
	goalsCmd.AddCommand(goalsListCmd)
	goalsCmd.AddCommand(goalsShowCmd)
	goalsCmd.AddCommand(goalsDeleteCmd)
}
