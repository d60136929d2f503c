package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prodline-labs/prodline-go/internal/repo"
)

type sequenceSyncer interface {
	SyncSequences(ctx context.Context) error
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert production lines and the configured stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.stages()
			if err != nil {
				return err
			}
			tx, closeFn, err := ctx.transactor(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			err = tx.InTx(cmd.Context(), repo.TxOptions{}, func(c context.Context, s repo.Store) error {
				for _, line := range cfg.Lines {
					if err := s.UpsertLine(c, line); err != nil {
						return err
					}
				}
				for _, stage := range cfg.Stages.Stages() {
					if err := s.UpsertStage(c, stage); err != nil {
						return err
					}
				}
				if syncer, ok := s.(sequenceSyncer); ok {
					return syncer.SyncSequences(c)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d lines and %d stages\n", len(cfg.Lines), cfg.Stages.Len())
			return nil
		},
	}
}
