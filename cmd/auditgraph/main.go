package main

import (
	"os"

	"github.com/spf13/cobra"

	"auditgraph/internal/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "auditgraph",
		Short:        "Auditor independence review backed by a relationship graph",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Project config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the config")

	root.AddCommand(reviewCmd(opts))
	root.AddCommand(extractCmd(opts))
	root.AddCommand(chatCmd(opts))
	root.AddCommand(serveCmd(opts))
	root.AddCommand(mcpCmd(opts))
	root.AddCommand(lawCmd(opts))
	root.AddCommand(graphCmd(opts))
	root.AddCommand(initCmd(opts))
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
