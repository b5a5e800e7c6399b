package main

import (
	"context"

	"github.com/spf13/cobra"
)

func extractCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract the relationship map of a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, opts, args)
		},
	}
}

func runExtract(cmd *cobra.Command, opts *rootOptions, args []string) error {
	ctx := context.Background()

	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return err
	}
	scenario, err := readScenario(cmd, args)
	if err != nil {
		return err
	}

	a := newApp(ctx, cfg, logger)
	defer a.Close(ctx)

	extraction, err := a.reviews.Extract(ctx, scenario)
	if err != nil {
		logger.Error("extract: failed", "error", err)
		return reviewFailure(err)
	}
	return printJSON(cmd.OutOrStdout(), extraction)
}
