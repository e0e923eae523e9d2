package main

import (
	"os"
	"path/filepath"

	"github.com/lpernett/godotenv"
	"github.com/spf13/cobra"

	"SettleX-Atlas/internal/config"
	"SettleX-Atlas/pkg/logger"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "atlas",
		Short: "Atlas 是 SettleX 的跨境结算对话助手",
		Long: `Atlas 根据关键词识别用户意图，回答汇率、合规与开户问题，
并通过多轮引导完成开户预审与支持工单的收集。`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径 (默认读取 ATLAS_CONFIG 或 configs/atlas.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "启动前加载的 dotenv 文件，不存在时忽略")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "覆盖配置中的日志级别 (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newChatCommand(opts),
		newMigrateCommand(opts),
		newRatesCommand(opts),
	)
	return cmd
}

// load 依次处理 dotenv、配置文件与日志初始化。
func (o *rootOptions) load() (*config.Config, error) {
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err == nil {
			if err := godotenv.Load(o.envFile); err != nil {
				return nil, err
			}
		}
	}

	path := o.configPath
	if path == "" {
		path = os.Getenv("ATLAS_CONFIG")
	}
	if path == "" {
		if candidate := filepath.Join("configs", "atlas.yaml"); fileExists(candidate) {
			path = candidate
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, err
	}
	if path != "" {
		logger.L().Debug("已加载配置文件", "path", path)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
