package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func reviewCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "review [file|-]",
		Short: "Run the full independence review on a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, opts, args, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or mermaid")
	return cmd
}

func runReview(cmd *cobra.Command, opts *rootOptions, args []string, format string) error {
	if format != "json" && format != "mermaid" {
		return fmt.Errorf("unknown format: %s", format)
	}
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

	report, err := a.reviews.Run(ctx, scenario)
	if err != nil {
		logger.Error("review: failed", "error", err)
		return reviewFailure(err)
	}

	if format == "mermaid" {
		fmt.Fprintln(cmd.OutOrStdout(), report.Diagram)
		return nil
	}
	return printJSON(cmd.OutOrStdout(), report)
}
