package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"SettleX-Atlas/internal/api"
	"SettleX-Atlas/internal/observability/metrics"
	"SettleX-Atlas/internal/session"
	"SettleX-Atlas/pkg/logger"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 对话服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if address != "" {
				cfg.Server.Address = address
			}

			ctx := cmd.Context()
			rt, err := buildRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			go rt.refreshRates(ctx)

			sessionOpts := []session.Option{}
			if rt.metrics != nil {
				sessionOpts = append(sessionOpts, session.WithObserver(rt.metrics.SetActiveSessions))
			}
			sessions := session.NewManager(session.Config{
				MaxHistory:  cfg.Assistant.MaxHistory,
				IdleTimeout: cfg.Sessions.IdleTimeout,
				MaxSessions: cfg.Sessions.MaxSessions,
			}, sessionOpts...)
			go sessions.Run(ctx, cfg.Sessions.SweepInterval)

			serverOpts := []api.Option{
				api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
				api.WithTicketLister(rt.lister),
			}
			if rt.metrics != nil {
				separate := cfg.Metrics.Address != ""
				serverOpts = append(serverOpts, api.WithMetrics(rt.metrics, !separate))
				if separate {
					go func() {
						if err := metrics.StartServer(ctx, cfg.Metrics.Address, rt.metrics.Handler()); err != nil && !errors.Is(err, context.Canceled) {
							logger.L().Error("指标服务异常退出", "error", err)
						}
					}()
				}
			}

			server := api.NewServer(cfg.Server.Address, rt.agent, sessions, serverOpts...)
			if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.L().Info("Atlas 已停止")
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "addr", "", "覆盖 server.address")
	return cmd
}
