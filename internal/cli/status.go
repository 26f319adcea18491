package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/wire"
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [project-id]",
		Short: "Show the phase board for a project",
		Long: `Show the pipeline phase board for a project.

Each phase is shown with its resolved status and, when a document
exists, the document's own state. If no project ID is given the active
project from the config is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := resolveProjectID(args)
			if err != nil {
				return err
			}

			ctx := context.Background()
			project, err := wire.ProjectService().GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			if err := wire.PipelineService().SetActiveProject(ctx, projectID); err != nil {
				return err
			}
			defer wire.PipelineService().Close()

			statuses := wire.PipelineService().PhaseStatuses()
			artifacts := wire.PipelineService().Artifacts()
			byType := make(map[string]models.Artifact, len(artifacts))
			for _, a := range artifacts {
				byType[a.ArtifactType] = a
			}

			fmt.Printf("%s [%s mode]\n\n", project.Name, project.Mode)
			for _, t := range phase.Pipeline {
				st := statuses[t]
				detail := ""
				if a, ok := byType[t]; ok {
					detail = fmt.Sprintf("  v%d %s", a.Version, a.Status)
					if a.Status == models.ArtifactStatusStale && a.StaleReason.Valid {
						detail += fmt.Sprintf(" (%s)", a.StaleReason.String)
					}
				}
				fmt.Printf("  %s %-20s %s%s\n", statusIcon(st), phase.Title(t), statusLabel(st), detail)
			}

			docs := phase.DocStatesOf(artifacts)
			if next, ok := phase.NextExpected(docs, project.Mode); ok {
				fmt.Printf("\nNext expected: %s\n", phase.Title(next))
			} else {
				fmt.Printf("\nAll phases approved.\n")
			}
			return nil
		},
	}
}

func statusIcon(st phase.Status) string {
	switch st {
	case phase.StatusComplete:
		return color.New(color.FgGreen).Sprint("✓")
	case phase.StatusActive:
		return color.New(color.FgHiMagenta).Sprint("●")
	case phase.StatusSkipped:
		return color.New(color.FgBlue).Sprint("-")
	case phase.StatusEmpty:
		return color.New(color.FgYellow).Sprint("○")
	default:
		return " "
	}
}

func statusLabel(st phase.Status) string {
	switch st {
	case phase.StatusComplete:
		return color.New(color.FgGreen).Sprint("complete")
	case phase.StatusActive:
		return color.New(color.FgHiMagenta).Sprint("active  ")
	case phase.StatusSkipped:
		return color.New(color.FgBlue).Sprint("skipped ")
	case phase.StatusEmpty:
		return color.New(color.FgYellow).Sprint("empty   ")
	default:
		return "pending "
	}
}

// resolveProjectID picks the project from args or falls back to the
// active project recorded in the config.
func resolveProjectID(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if id := wire.Cfg().ActiveProject; id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no project specified; pass a project ID or run: atelier project use <id>")
}
