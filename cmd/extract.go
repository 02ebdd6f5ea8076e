package cmd

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/frahmantamala/invoice-management/internal/core/common/validation"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/frahmantamala/invoice-management/internal/extraction"
	"github.com/frahmantamala/invoice-management/internal/ocr"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	extractVendor string
	extractNumber string
)

type extractOutput struct {
	File        string            `json:"file"`
	Text        string            `json:"text"`
	Suggestions extraction.Fields `json:"suggestions"`
}

// extractCmd runs a local document through the configured text extractor and
// the field heuristics, without storing anything.
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract text and suggested fields from an invoice document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		file := attachment.File{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Size:        int64(len(data)),
			Content:     data,
		}
		if appErr := validation.ValidateFile(file, cfg.Upload.MaxFileSize); appErr != nil {
			return appErr
		}

		extractor, closeExtractor, err := ocr.New(ctx, cfg.Extraction, logger.LoggerWrapper())
		if err != nil {
			return err
		}
		defer closeExtractor()

		text, err := extractor.ExtractText(ctx, file)
		if err != nil {
			return err
		}

		out := extractOutput{
			File: path,
			Text: text,
			Suggestions: extraction.Extract(text, extraction.Prefilled{
				VendorName:    extractVendor,
				InvoiceNumber: extractNumber,
			}),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractVendor, "vendor", "", "known vendor name, suppresses the vendor guess")
	extractCmd.Flags().StringVar(&extractNumber, "number", "", "known invoice number, suppresses the number guess")
}
