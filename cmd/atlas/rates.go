package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"SettleX-Atlas/internal/quote"
	redisstore "SettleX-Atlas/internal/storage/redis"
	"SettleX-Atlas/pkg/logger"
)

func newRatesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "查看或发布 Redis 中的中间价",
	}
	cmd.AddCommand(newRatesPushCommand(root), newRatesShowCommand(root))
	return cmd
}

func newRatesPushCommand(root *rootOptions) *cobra.Command {
	var useFallback bool
	cmd := &cobra.Command{
		Use:   "push [CODE=RATE ...]",
		Short: "把中间价写入 Redis 汇率哈希",
		Example: `  atlas rates push USD=83.5 SGD=62.4
  atlas rates push --fallback`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			rates, err := parseRateArgs(args)
			if err != nil {
				return err
			}
			if useFallback {
				for code, rate := range quote.FallbackRates() {
					if _, ok := rates[code]; !ok {
						rates[code] = rate
					}
				}
			}

			store, err := redisstore.NewRateStore(cmd.Context(), redisstore.Config{
				Address:  cfg.Rates.Redis.Address,
				Password: cfg.Rates.Redis.Password,
				DB:       cfg.Rates.Redis.DB,
				Key:      cfg.Rates.Redis.Key,
				TTL:      cfg.Rates.Redis.TTL,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Save(cmd.Context(), rates); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入 %d 个币种\n", len(rates))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useFallback, "fallback", false, "补齐内置的离线中间价")
	return cmd
}

func newRatesShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "打印 Redis 中当前的中间价",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := redisstore.NewRateStore(cmd.Context(), redisstore.Config{
				Address:  cfg.Rates.Redis.Address,
				Password: cfg.Rates.Redis.Password,
				DB:       cfg.Rates.Redis.DB,
				Key:      cfg.Rates.Redis.Key,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			rates, err := store.Rates(cmd.Context())
			if err != nil {
				return err
			}
			codes := make([]string, 0, len(rates))
			for code := range rates {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", code, strconv.FormatFloat(rates[code], 'f', -1, 64))
			}
			return nil
		},
	}
}

// parseRateArgs 解析 CODE=RATE 形式的参数，代码统一转为大写。
func parseRateArgs(args []string) (map[string]float64, error) {
	rates := make(map[string]float64, len(args))
	for _, arg := range args {
		code, raw, ok := strings.Cut(arg, "=")
		code = strings.ToUpper(strings.TrimSpace(code))
		if !ok || code == "" {
			return nil, fmt.Errorf("无法解析汇率参数 %q，期望 CODE=RATE", arg)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("汇率 %s 必须为正数: %q", code, raw)
		}
		rates[code] = rate
	}
	return rates, nil
}
