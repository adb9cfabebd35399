package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-sar/internal/bootstrap"
	"github.com/bryanwahyu/automaton-sar/internal/config"
)

func newSeedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the configured persistent knowledge store if it is empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Knowledge.Store == "memory" {
				return errors.New("knowledge.store is memory: seeded documents would vanish when sarctl exits; the API server seeds its own store on start")
			}
			log, err := bootstrap.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			r, closer, err := bootstrap.Knowledge(ctx, cfg, bootstrap.NewAIClient(cfg), nil, log, nil)
			defer func() { _ = closer.Close() }()
			if err != nil {
				return err
			}
			n, err := r.Initialize(ctx)
			if err != nil {
				return fmt.Errorf("seed %s store: %w", cfg.Knowledge.Store, err)
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s store already populated, nothing to seed\n", cfg.Knowledge.Store)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents into %s store\n", n, cfg.Knowledge.Store)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "config.yaml", "config file")
	return cmd
}
