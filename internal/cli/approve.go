package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/ctxutil"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

// ApproveCmd returns the approve command
func ApproveCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "approve [artifact-type|artifact-id]",
		Short: "Approve a phase document",
		Long: `Approve a phase document, unlocking the next phase.

The argument may be an artifact type (e.g. discovery_report) or an
artifact ID. Only the document of the currently active phase can be
approved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := projectID
			if id == "" {
				var err error
				if id, err = resolveProjectID(nil); err != nil {
					return err
				}
			}

			ctx := ctxutil.WithActorID(context.Background(), wire.Cfg().UserID)
			if err := wire.PipelineService().SetActiveProject(ctx, id); err != nil {
				return err
			}
			defer wire.PipelineService().Close()

			artifactID, err := findArtifactID(args[0])
			if err != nil {
				return err
			}

			resp, err := wire.PipelineService().Approve(ctx, primary.ApproveRequest{
				ArtifactID: artifactID,
				ApprovedBy: wire.Cfg().UserID,
			})
			if err != nil {
				if errors.Is(err, primary.ErrInvalidTransition) {
					return fmt.Errorf("cannot approve: %w", err)
				}
				return err
			}

			fmt.Printf("%s Approved %s v%d\n",
				color.New(color.FgGreen).Sprint("✓"),
				phase.Title(resp.Artifact.ArtifactType), resp.Artifact.Version)

			docs := phase.DocStatesOf(wire.PipelineService().Artifacts())
			project, perr := wire.ProjectService().GetProject(ctx, id)
			if perr == nil {
				if next, ok := phase.NextExpected(docs, project.Mode); ok {
					fmt.Printf("Next phase: %s\n", phase.Title(next))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (defaults to the active project)")
	return cmd
}

// findArtifactID resolves the argument against the loaded artifact set,
// matching by artifact type first, then by ID.
func findArtifactID(arg string) (string, error) {
	artifacts := wire.PipelineService().Artifacts()
	if phase.IsValidType(arg) {
		for _, a := range artifacts {
			if a.ArtifactType == arg {
				return a.ID, nil
			}
		}
		return "", fmt.Errorf("no %s document exists yet", phase.Title(arg))
	}
	for _, a := range artifacts {
		if a.ID == arg {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("artifact not found: %s", arg)
}
