package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/pkg/config"
	"github.com/noah-isme/exam-analytics-api/pkg/logger"
)

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd assembles the examctl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "examctl",
		Short:        "Operate the exam analytics database and ingestion pipeline",
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newArchiveCmd())
	return cmd
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
