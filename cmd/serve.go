package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/driven"
	"github.com/BetterCallFirewall/Revalidator/internal/server"
	"github.com/BetterCallFirewall/Revalidator/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assessment API and live progress WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if v := viper.GetString("listen"); v != "" {
				cfg.Server.ListenAddr = v
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := openStore(ctx, cfg)
			defer store.Close()

			hub := websocket.NewHub()
			go hub.Run(ctx)

			srv := server.NewServer(server.Config{
				ListenAddr: cfg.Server.ListenAddr,
				Pipeline:   driven.Assemble(cfg, newReasoner(ctx, cfg), store, hub),
				Runs:       driven.NewRunManager(),
				Store:      store,
				Hub:        hub,
			})
			defer srv.Close()

			httpSrv := srv.HTTPServer()
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Server.ListenAddr).Msg("🌐 Starting API server")
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			log.Info().Msg("🛑 Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("listen", "", "Listen address (overrides config)")
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))

	return cmd
}
