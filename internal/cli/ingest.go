package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-analytics-api/internal/app"
	"github.com/noah-isme/exam-analytics-api/internal/service"
)

func newIngestCmd() *cobra.Command {
	var responsesPath, answerKeyPath string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a responses file and answer key from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readIngestionInput(responsesPath, answerKeyPath)
			if err != nil {
				return err
			}

			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			container, err := app.New(cmd.Context(), cfg, logr)
			if err != nil {
				return err
			}
			defer container.Close()

			result, err := container.Ingestion.Ingest(cmd.Context(), input)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&responsesPath, "responses", "", "path to the student responses CSV")
	cmd.Flags().StringVar(&answerKeyPath, "answer-key", "", "path to the answer key CSV")
	_ = cmd.MarkFlagRequired("responses")
	_ = cmd.MarkFlagRequired("answer-key")
	return cmd
}

func readIngestionInput(responsesPath, answerKeyPath string) (service.IngestionInput, error) {
	responses, err := os.ReadFile(responsesPath)
	if err != nil {
		return service.IngestionInput{}, fmt.Errorf("read responses: %w", err)
	}
	answerKey, err := os.ReadFile(answerKeyPath)
	if err != nil {
		return service.IngestionInput{}, fmt.Errorf("read answer key: %w", err)
	}
	return service.IngestionInput{
		Responses:     responses,
		ResponsesName: filepath.Base(responsesPath),
		AnswerKey:     answerKey,
		AnswerKeyName: filepath.Base(answerKeyPath),
		UploadedBy:    "examctl",
	}, nil
}
