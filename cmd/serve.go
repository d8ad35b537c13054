package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/cv-advisor/internal/server"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve advice sessions over a websocket at /ws",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default :8080)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newCommandLogger(false)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-advisor server", zap.String("version", version))

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer svc.Close()

	srv := server.New(svc.controller, server.Options{
		SessionTimeout: config.Server.SessionTimeout,
		AllowedOrigins: config.Server.AllowedOrigins,
	}, logger)

	if err := srv.ListenAndServe(ctx, config.Server.Listen); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("server stopped")
}
