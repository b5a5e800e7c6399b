package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"auditgraph/internal/diagram"
	"auditgraph/internal/fingerprint"
	"auditgraph/internal/validate"
)

func graphCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect cached relationship graphs",
	}
	cmd.AddCommand(graphShowCmd(opts))
	cmd.AddCommand(graphListCmd(opts))
	cmd.AddCommand(graphDeleteCmd(opts))
	cmd.AddCommand(graphValidateCmd(opts))
	return cmd
}

func parseFingerprint(arg string) (string, error) {
	fp := strings.ToUpper(strings.TrimSpace(arg))
	if !fingerprint.Valid(fp) {
		return "", fmt.Errorf("invalid fingerprint %q: want 8 hexadecimal characters", arg)
	}
	return fp, nil
}

func graphShowCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <fingerprint>",
		Short: "Print a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := parseFingerprint(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s, err := requireStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			g, err := s.LoadGraph(ctx, fp)
			if err != nil {
				return err
			}
			if g == nil {
				return fmt.Errorf("no graph stored for %s", fp)
			}

			switch format {
			case "mermaid":
				fmt.Fprintln(cmd.OutOrStdout(), diagram.Render(*g, nil))
				return nil
			case "json":
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"fingerprint":  fp,
					"rel_map":      g,
					"diagram_code": diagram.Render(*g, nil),
				})
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or mermaid")
	return cmd
}

func graphListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored fingerprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s, err := requireStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			summaries, err := s.ListFingerprints(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No graphs stored.")
				return nil
			}
			for _, sum := range summaries {
				fmt.Fprintf(out, "%s  %d entities, %d connections\n", sum.Fingerprint, sum.Entities, sum.Connections)
			}
			return nil
		},
	}
}

func graphDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <fingerprint>",
		Short: "Delete a stored graph so the next review re-extracts it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := parseFingerprint(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s, err := requireStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			n, err := s.DeleteGraph(ctx, fp)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entities for %s\n", n, fp)
			return nil
		},
	}
}

func graphValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [fingerprint...]",
		Short: "Check stored graphs for broken invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var fps []string
			for _, arg := range args {
				fp, err := parseFingerprint(arg)
				if err != nil {
					return err
				}
				fps = append(fps, fp)
			}
			ctx := context.Background()
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s, err := requireStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			report, err := validate.Run(ctx, s, fps...)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func printReport(out io.Writer, report *validate.Report) error {
	var errorIssues, warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}
	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}
	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Fingerprint
		if issue.Entity != "" {
			location = fmt.Sprintf("%s/%s", issue.Fingerprint, issue.Entity)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
