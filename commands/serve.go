package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/yeremiapane/restqr/app"
	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/database"
	"github.com/yeremiapane/restqr/telemetry"
	"github.com/yeremiapane/restqr/utils"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.GinMode == gin.ReleaseMode {
			gin.SetMode(gin.ReleaseMode)
		}

		shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				utils.ErrorLogger.WithError(err).Error("tracer shutdown failed")
			}
		}()

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		if autoMigrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}

		rdb, err := config.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
		}

		a, err := app.New(ctx, cfg, db, rdb, utils.InfoLogger)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           a.Engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				utils.ErrorLogger.WithError(err).Error("server shutdown failed")
			}
		}()

		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		utils.InfoLogger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Run AutoMigrate before serving")
	rootCmd.AddCommand(serveCmd)
}
