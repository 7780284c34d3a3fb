package commands

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeremiapane/restqr/cache"
	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/database"
	"github.com/yeremiapane/restqr/repository"
	"github.com/yeremiapane/restqr/utils"
)

var seedMenu bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		if !seedMenu {
			return nil
		}
		if err := database.SeedMenu(db); err != nil {
			return err
		}
		return dropMenuListing(cmd, db)
	},
}

// dropMenuListing clears the cached menu listing so running servers pick up
// the seeded items.
func dropMenuListing(cmd *cobra.Command, db *gorm.DB) error {
	rdb, err := config.NewRedisClient(cmd.Context(), cfg)
	if err != nil || rdb == nil {
		return err
	}
	defer rdb.Close()
	menu := cache.NewCachedMenuRepository(repository.NewMenuRepository(db), rdb, cfg.MenuCacheTTL, utils.InfoLogger.WithField("component", "menu_cache"))
	return menu.Invalidate(cmd.Context())
}

func init() {
	migrateCmd.Flags().BoolVar(&seedMenu, "seed", false, "Insert a sample menu when the menu is empty")
	rootCmd.AddCommand(migrateCmd)
}
