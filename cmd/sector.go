package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/sector"
)

var sectorOffline bool

var sectorCmd = &cobra.Command{
	Use:   "sector",
	Short: "Sector taxonomy helpers",
}

var sectorExpandCmd = &cobra.Command{
	Use:   "expand <sector-id>",
	Short: "Expand a sector to its full subtree of ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var resolver *sector.Resolver
		if sectorOffline {
			cache, err := sector.OpenCache(cfg.Sector.CachePath)
			if err != nil {
				return err
			}
			defer cache.Close()

			syncedAt, err := cache.SyncedAt(ctx)
			if err != nil {
				return eris.Wrap(err, "read cache sync stamp (run `sector sync-cache` first)")
			}
			zap.L().Info("using offline sector cache",
				zap.String("path", cfg.Sector.CachePath),
				zap.Time("synced_at", syncedAt))

			resolver = sector.NewResolver(cache, zap.L()).WithMaxVisited(cfg.Sector.MaxVisited)
		} else {
			env, err := initEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()
			resolver = env.Sectors
		}

		set, err := resolver.Expand(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"sectorIds": set.Sorted()})
	},
}

var sectorSyncCacheCmd = &cobra.Command{
	Use:   "sync-cache",
	Short: "Snapshot the sector table into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sectors, err := sector.NewStore(env.Pool).All(ctx)
		if err != nil {
			return err
		}

		cache, err := sector.OpenCache(cfg.Sector.CachePath)
		if err != nil {
			return err
		}
		defer cache.Close()

		if err := cache.Migrate(ctx); err != nil {
			return err
		}
		if err := cache.Replace(ctx, sectors); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "cached %d sectors in %s\n", len(sectors), cfg.Sector.CachePath)
		return nil
	},
}

func init() {
	sectorExpandCmd.Flags().BoolVar(&sectorOffline, "offline", false, "resolve from the local cache instead of Postgres")
	sectorCmd.AddCommand(sectorExpandCmd, sectorSyncCacheCmd)
	rootCmd.AddCommand(sectorCmd)
}
