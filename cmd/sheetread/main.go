// Package main provides the CLI entry point for sheetread.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ukaji3/sheetread-go/internal/logging"
	"github.com/ukaji3/sheetread-go/pkg/sheetread"
	"github.com/ukaji3/sheetread-go/pkg/sheetread/models"
	"github.com/ukaji3/sheetread-go/pkg/sheetread/output"
)

type config struct {
	outputPath string
	pretty     bool
	mode       string
	sheets     []string
	skipHidden bool
	sheetsDir  string
	password   string
	charset    string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}
	rootCmd := &cobra.Command{
		Use:   "sheetread [input]",
		Short: "Dump spreadsheet contents as JSON",
		Long: `sheetread reads xlsx, xlsm, xls, xlsb, ods and fods files
and outputs their sheets as typed cell JSON.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, args[0])
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.outputPath, "output", "o", "", "Output file path (default: stdout)")
	flags.BoolVar(&cfg.pretty, "pretty", false, "Pretty-print JSON output")
	flags.StringVar(&cfg.mode, "mode", string(sheetread.ModeLazy), "Decode mode: lazy, eager")
	flags.StringSliceVar(&cfg.sheets, "sheet", nil, "Sheet to extract (repeatable, default: all)")
	flags.BoolVar(&cfg.skipHidden, "skip-hidden", false, "Leave hidden sheets out")
	flags.StringVar(&cfg.sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	flags.StringVar(&cfg.password, "password", "", "Password for encrypted xlsx files")
	flags.StringVar(&cfg.charset, "charset", sheetread.DefaultCharset, "Encoding of 8-bit strings in xls files")
	flags.StringVar(&cfg.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text, json")

	return rootCmd
}

func run(cmd *cobra.Command, cfg *config, inputPath string) error {
	logger := logging.Setup(cmd.ErrOrStderr(), cfg.logLevel, cfg.logFormat)

	var decodeMode sheetread.Mode
	switch cfg.mode {
	case "lazy":
		decodeMode = sheetread.ModeLazy
	case "eager":
		decodeMode = sheetread.ModeEager
	default:
		return fmt.Errorf("invalid mode: %s (must be lazy or eager)", cfg.mode)
	}

	opts := sheetread.Options{
		Mode:       decodeMode,
		Password:   cfg.password,
		Charset:    cfg.charset,
		Logger:     logger,
		Sheets:     cfg.sheets,
		SkipHidden: cfg.skipHidden,
	}

	wb, err := sheetread.Extract(inputPath, opts)
	if err != nil {
		logger.Error("extraction failed", "path", inputPath, "kind", sheetread.KindOf(err).String())
		return fmt.Errorf("extraction failed: %w", err)
	}
	logger.Info("extracted workbook", "path", inputPath, "format", wb.Format, "sheets", len(wb.Sheets))

	jsonData, err := output.ToJSON(wb, cfg.pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if cfg.outputPath != "" {
		if err := os.WriteFile(cfg.outputPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if cfg.sheetsDir == "" {
		if err := writeLine(cmd.OutOrStdout(), jsonData); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if cfg.sheetsDir != "" {
		if err := writeSheetFiles(wb, cfg.sheetsDir, cfg.pretty); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}

	return nil
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

func sheetFileName(sheet models.SheetData) string {
	return fmt.Sprintf("%02d_%s.json", sheet.Index, unsafeFileChars.Replace(sheet.Name))
}

func writeSheetFiles(wb *models.WorkbookData, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		jsonData, err := output.SheetToJSON(sheet, pretty)
		if err != nil {
			return err
		}

		filename := filepath.Join(dir, sheetFileName(*sheet))
		if err := os.WriteFile(filename, jsonData, 0644); err != nil {
			return err
		}
	}

	return nil
}
