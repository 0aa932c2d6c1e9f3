package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/paytrust/internal/api"
	"github.com/darmiel/paytrust/internal/refresh"
	"github.com/darmiel/paytrust/internal/service"
	"github.com/darmiel/paytrust/internal/tasks"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the PayTrust server",
	Long: `Loads every configured merchant, starts refreshing automatically managed
platform certificates and serves notification and admin endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		log.Info().Msgf("Loading %d merchant(s)...", len(cfg.Merchants))
		trust, err := service.Build(cmd.Context(), cfg, service.BuildOptions{
			Metrics: refresh.NewMetrics(reg),
		})
		if err != nil {
			return fmt.Errorf("loading merchants: %w", err)
		}
		defer func() {
			if err := trust.Close(); err != nil {
				log.Warn().Err(err).Msg("closing trust service")
			}
		}()

		taskManager := tasks.NewManager()
		taskManager.Add(trust.Refresh().Task())

		if cfg.Server.AdminKey == "" {
			log.Warn().Msg("no admin_key configured, admin endpoints are unauthenticated")
		}

		srv := api.NewServer(trust, taskManager, api.Options{
			Gatherer:     reg,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		})

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           srv.Routes([]byte(cfg.Server.AdminKey)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		<-cmd.Context().Done()
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f.bindConfigFlag(serveCmd.Flags())
	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.addr)")
}
