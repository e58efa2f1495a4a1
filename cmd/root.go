package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/matchdesk/config"
	"github.com/Dosada05/matchdesk/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

const dbConnectTimeout = 5 * time.Second

var (
	cfg    *config.Config
	logger *slog.Logger
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "matchdesk",
		Short: "Match result desk for round-based tournaments",
		Long: `matchdesk serves the JSON API through which administrators schedule matches
and teams enter their results, and carries the operator commands around it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Загрузка конфигурации
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			// Настройка логгера
			logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
			slog.SetDefault(logger)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCreateAdminCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase подключается к базе из конфигурации.
func openDatabase() (*sqlx.DB, error) {
	dbConn, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established", slog.String("driver", cfg.DBDriver))
	return dbConn, nil
}

func closeDatabase(dbConn *sqlx.DB) {
	if err := dbConn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.Any("error", err))
	} else {
		logger.Info("database connection closed")
	}
}
