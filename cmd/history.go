package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spigell/cv-advisor/internal/archive"
	"github.com/spigell/cv-advisor/internal/secrets"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the archived report of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		history(args[0])
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func history(sessionID string) {
	ctx := context.Background()

	logger, err := newCommandLogger(true)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	url, err := secrets.Load(secrets.Source{
		Name:  "database url",
		File:  config.Archive.DatabaseURLFile,
		Value: config.Archive.DatabaseURL,
	})
	if err != nil {
		logger.Fatal("loading database url", zap.Error(err),
			zap.String("hint", "set CV_ADVISOR_DATABASE_URL or archive.database-url in the configuration file"),
		)
	}

	store, err := archive.Connect(ctx, url)
	if err != nil {
		logger.Fatal("connecting to archive", zap.Error(err))
	}
	defer store.Close()

	record, err := store.Latest(ctx, sessionID)
	if err != nil {
		logger.Fatal("loading report", zap.Error(err))
	}

	logger.Info("found report",
		zap.String("job_title", record.JobTitle),
		zap.Int("score", record.Score),
		zap.String("outcome", record.Outcome),
		zap.Time("created_at", record.CreatedAt),
	)
	fmt.Println(record.Rendered)
}
