package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stationflow/internal/config"
)

var (
	runTrigger string
	runQuery   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start one execution locally and print its outcome (for scripting/smoke tests)",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runTrigger, "trigger", "", "trigger string identifying the workflow to start")
	runCmd.Flags().StringVar(&runQuery, "query", "", "initial query/input text for the execution")
	_ = runCmd.MarkFlagRequired("trigger")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	a, err := build(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	wf, err := a.workflows.FindByTrigger(ctx, runTrigger)
	if err != nil {
		return fmt.Errorf("find workflow by trigger %q: %w", runTrigger, err)
	}

	outcome := a.engine.Run(ctx, uuid.NewString(), wf, runQuery, nil)
	encoded, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
