package main

import (
	"errors"

	"github.com/spf13/cobra"

	"SettleX-Atlas/internal/storage/mysql"
	"SettleX-Atlas/pkg/logger"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "对工单库执行内嵌的 MySQL 迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			mcfg := mysqlConfig(cfg.Tickets.MySQL)
			if dsn != "" {
				mcfg.DSN = dsn
			}
			if mcfg.DSN == "" {
				return errors.New("需要通过 --dsn、tickets.mysql.dsn 或 ATLAS_MYSQL_DSN 提供 DSN")
			}
			if err := mysql.Migrate(cmd.Context(), mcfg); err != nil {
				return err
			}
			logger.L().Info("工单库迁移完成")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "覆盖 tickets.mysql.dsn")
	return cmd
}
