package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-analytics-api/pkg/storage"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived uploads",
	}
	cmd.AddCommand(newArchivePruneCmd())
	return cmd
}

func newArchivePruneCmd() *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived uploads older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			if retention <= 0 {
				retention = cfg.Ingestion.ArchiveRetention
			}
			archive, err := storage.NewArchive(cfg.Ingestion.ArchiveDir)
			if err != nil {
				return err
			}
			removed, err := archive.Prune(retention, time.Now())
			if err != nil {
				return err
			}
			logr.Info("archive pruned", zap.Strings("days", removed), zap.Duration("retention", retention))
			for _, day := range removed {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), day); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", 0, "age after which uploads are removed, defaults to INGEST_ARCHIVE_RETENTION")
	return cmd
}
