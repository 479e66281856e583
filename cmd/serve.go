package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/datahub-cli/internal/server"
	"github.com/KaramelBytes/datahub-cli/internal/session"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		log, cleanup, err := newLogger(false)
		if err != nil {
			return err
		}
		defer cleanup()

		loadOpt, err := loadOptions()
		if err != nil {
			return err
		}
		ttl := time.Duration(c.SessionTTLMin) * time.Minute
		store := session.NewStore(ttl)
		srv := server.New(store, server.Options{
			Load:        loadOpt,
			Predict:     predictOptions(),
			ChartWidth:  c.ChartWidth,
			ChartHeight: c.ChartHeight,
			BodyLimit:   c.MaxUploadMB << 20,
		}, log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go store.RunSweeper(ctx, time.Minute, log)

		errc := make(chan error, 1)
		go func() { errc <- srv.Listen(addr) }()
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
}
