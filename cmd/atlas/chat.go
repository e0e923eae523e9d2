package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"SettleX-Atlas/internal/agent"
	"SettleX-Atlas/internal/dialogue"
	"SettleX-Atlas/pkg/logger"
)

func newChatCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "在终端中与 Atlas 对话，输入 /quit 或 Ctrl-D 结束",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.rates != nil {
				if err := rt.quotes.Refresh(ctx, rt.rates); err != nil {
					logger.L().Warn("刷新汇率失败，使用离线汇率", "error", err)
				}
			}

			id := "cli-" + uuid.NewString()
			sess := dialogue.NewSession(cfg.Assistant.MaxHistory)
			return chatLoop(agent.WithSessionID(ctx, id), rt.agent, sess, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func chatLoop(ctx context.Context, ag *agent.Agent, sess *dialogue.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "you> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return nil
		}
		if line != "" {
			fmt.Fprintf(out, "atlas> %s\n\n", ag.Process(ctx, sess, line))
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "you> ")
	}
	return scanner.Err()
}
