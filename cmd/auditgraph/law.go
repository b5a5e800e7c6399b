package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func lawCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "law",
		Short: "Inspect the legal registry",
	}
	cmd.AddCommand(lawResolveCmd(opts))
	cmd.AddCommand(lawReloadCmd(opts))
	return cmd
}

func lawResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <citation>",
		Short: "Resolve a law citation to its law.go.kr URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			laws := newRegistry(cfg, logger)

			citation := strings.TrimSpace(strings.Join(args, " "))
			url, ok := laws.Resolve(citation)
			valid := laws.IsValid(citation)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:  %s\n", citation)
			fmt.Fprintf(out, "valid: %t\n", valid)
			if ok {
				fmt.Fprintf(out, "url:   %s\n", url)
			} else {
				fmt.Fprintln(out, "url:   (none)")
			}
			return nil
		},
	}
}

func lawReloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Read the registry source and report how many statutes it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			laws := newRegistry(cfg, logger)

			n, err := laws.Reload(context.Background())
			if err != nil {
				return fmt.Errorf("reloading %s: %w", laws.Path(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d statutes from %s\n", n, laws.Path())
			return nil
		},
	}
}
