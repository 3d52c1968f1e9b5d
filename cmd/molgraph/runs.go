package main

import (
	"fmt"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/data/manifest"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/util"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRunsCommand(root *rootOptions) *cobra.Command {
	var failedOnly bool
	cmd := &cobra.Command{
		Use:   "runs MANIFEST RUN_ID",
		Short: "Show the recorded outcome of every query of a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(root.level("warn")); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			run, data, err := outcomeTable(args[0], args[1], failedOnly)
			if err != nil {
				return err
			}
			pterm.DefaultSection.Println("Run " + run.ID)
			pterm.Info.Printf("started %s, %d queries, %d workers, outputs %v\n",
				run.StartedAt.Format(time.RFC3339), run.QueryCount, run.Workers, run.Outputs)
			if run.FinishedAt.IsZero() {
				pterm.Warning.Println("run did not finish")
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed queries")
	return cmd
}

func outcomeTable(path, runID string, failedOnly bool) (manifest.Run, pterm.TableData, error) {
	if !util.FileExists(path) {
		return manifest.Run{}, nil, errors.AddContext(errors.New(errors.CodeNotFound, "manifest not found"), errors.CtxPath, path)
	}
	store, err := manifest.Open(path)
	if err != nil {
		return manifest.Run{}, nil, err
	}
	defer store.Close()

	run, err := store.LoadRun(runID)
	if err != nil {
		return manifest.Run{}, nil, err
	}
	var status manifest.Status
	if failedOnly {
		status = manifest.StatusFailed
	}
	outcomes, err := store.Outcomes(runID, status)
	if err != nil {
		return manifest.Run{}, nil, err
	}

	data := pterm.TableData{{"Query", "Status", "Worker", "Error", "Output"}}
	for _, o := range outcomes {
		data = append(data, []string{o.QueryID, string(o.Status), fmt.Sprint(o.Worker), o.ErrorCode, o.Output})
	}
	return run, data, nil
}
