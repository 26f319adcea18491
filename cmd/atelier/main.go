package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/cli"
	"github.com/example/atelier/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "atelier",
		Short:   "Atelier - pipeline manager for instructional design deliverables",
		Version: version.String(),
		Long: `Atelier manages a chat-driven, eight-phase document pipeline for
instructional designers: Contract, Discovery, Persona, Strategy,
Blueprint, Scenarios, Assessment, and Audit. Each phase produces an
approvable artifact; revising an upstream artifact marks approved
downstream artifacts stale.`,
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ProjectCmd())
	rootCmd.AddCommand(cli.ChatCmd())
	rootCmd.AddCommand(cli.ApproveCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
