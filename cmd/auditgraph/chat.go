package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"auditgraph/internal/llm"
)

func chatCmd(opts *rootOptions) *cobra.Command {
	var system string
	cmd := &cobra.Command{
		Use:   "chat [question|-]",
		Short: "Ask the audit assistant a single question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args, system)
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "Optional system prompt")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, args []string, system string) error {
	ctx := context.Background()

	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return err
	}

	var question string
	if len(args) > 0 && args[0] != "-" {
		question = strings.TrimSpace(strings.Join(args, " "))
	} else {
		question, err = readScenario(cmd, nil)
		if err != nil {
			return err
		}
	}

	var messages []llm.Message
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, llm.Message{Role: "system", Content: system})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})

	reply, err := llm.NewChatter(newLLMClient(cfg, logger), cfg.LLM.ChatModel, cfg.LLM.TemperatureChat).Reply(ctx, messages)
	if err != nil {
		logger.Error("chat: failed", "error", err)
		return reviewFailure(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
