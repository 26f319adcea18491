package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/config"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

// ProjectCmd returns the project command
func ProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long:  `Create and manage instructional-design projects.`,
	}

	cmd.AddCommand(projectCreateCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectShowCmd())
	cmd.AddCommand(projectUseCmd())
	cmd.AddCommand(projectArchiveCmd())
	cmd.AddCommand(projectDeleteCmd())

	return cmd
}

func projectCreateCmd() *cobra.Command {
	var description, mode string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new project",
		Long: `Create a new project.

Quick mode restricts the pipeline to contract, blueprint, scenarios and
assessment; the other phases are permanently skipped.

Examples:
  atelier project create "Onboarding Course"
  atelier project create "Compliance Refresher" --mode quick`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.ProjectService().CreateProject(context.Background(), primary.CreateProjectRequest{
				UserID:      wire.Cfg().UserID,
				Name:        args[0],
				Description: description,
				Mode:        mode,
			})
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			fmt.Printf("✓ Created project %s: %s [%s]\n", resp.ProjectID, resp.Project.Name, resp.Project.Mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "project description")
	cmd.Flags().StringVar(&mode, "mode", "", "pipeline mode: standard or quick")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := wire.ProjectService().ListProjects(context.Background(), status)
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Println("No projects found. Create one with: atelier project create <name>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMODE\tSTATUS\tSTAGE")
			for _, p := range projects {
				stage := p.CurrentStage
				if stage == "" {
					stage = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Mode, p.Status, stage)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, archived)")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [project-id]",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := wire.ProjectService().GetProject(context.Background(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s - %s [%s]\n", p.ID, p.Name, p.Status)
			if p.Description != "" {
				fmt.Printf("  %s\n", p.Description)
			}
			fmt.Printf("  Mode:  %s\n", p.Mode)
			if p.CurrentStage != "" {
				fmt.Printf("  Stage: %s\n", p.CurrentStage)
			}
			fmt.Printf("  Created: %s\n", p.CreatedAt)
			return nil
		},
	}
}

func projectUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use [project-id]",
		Short: "Set the active project for chat/status/approve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := wire.ProjectService().GetProject(context.Background(), args[0]); err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
			cfg := wire.Cfg()
			cfg.ActiveProject = args[0]
			if err := config.SaveConfig(cwd, cfg); err != nil {
				return err
			}
			fmt.Printf("✓ Active project set to %s\n", args[0])
			return nil
		},
	}
}

func projectArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive [project-id]",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.ProjectService().ArchiveProject(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to archive project: %w", err)
			}
			fmt.Printf("✓ Archived project %s\n", args[0])
			return nil
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [project-id]",
		Short: "Delete a project and all its messages and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("deleting a project removes all its artifacts; re-run with --force to confirm")
			}
			if err := wire.ProjectService().DeleteProject(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete project: %w", err)
			}
			fmt.Printf("✓ Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")
	return cmd
}
