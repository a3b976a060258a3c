package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"epictech-chat/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat history to the widget over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.store.Open(ctx); err != nil {
				return err
			}
			a.logger.Info("Database initialized: %s", a.store.Path())

			cfg := server.Config{
				Port: a.cfg.Server.Port,
				Mode: a.cfg.Server.Mode,
				CORS: a.cfg.Server.CORS,
			}
			if port > 0 {
				cfg.Port = port
			}

			handler := server.NewHandler(a.store, a.chatService(), a.cfg.Data.Product)
			router := server.NewRouter(handler, cfg, a.logger.Logger)

			fmt.Fprintf(cmd.OutOrStdout(), "🌐 Listening on http://localhost:%d/api\n", cfg.Port)
			return server.Run(ctx, router, cfg, a.logger.Logger)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}
