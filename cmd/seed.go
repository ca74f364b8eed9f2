/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/heroverse/apiserver/config"
	"github.com/heroverse/apiserver/internal/seed"
	"github.com/heroverse/apiserver/internal/server"
	"github.com/heroverse/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedKeep bool

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo hero roster",
	Long: `Deletes every user in the configured store and inserts the demo
roster with its subscriber links. Pass --keep to insert without deleting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		if err := checkSeedStore(cfg.StoreDriver); err != nil {
			return err
		}

		ctx := cmd.Context()
		stores, err := server.OpenStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = stores.Close(ctx) }()

		auth := services.NewAuthService(stores.Users, nil, nil, logger)

		users, err := seed.NewSeeder(stores.Users, auth, logger, cfg.Storage.PublicBaseURL).Run(ctx, seed.Roster, !seedKeep)
		if err != nil {
			return err
		}
		for _, user := range users {
			logger.Info("seeded user",
				zap.String("id", user.ID),
				zap.String("username", user.Username),
				zap.Int("subscribers", user.SubscriptionsAmount()),
			)
		}
		return nil
	},
}

// checkSeedStore rejects drivers whose data does not outlive the command.
func checkSeedStore(driver string) error {
	if driver == config.StoreMemory || driver == "" {
		return fmt.Errorf("STORE_DRIVER=%s does not persist; seed a postgres or mongo store", config.StoreMemory)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedKeep, "keep", false, "keep existing users")
}
