package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/cli"
	"github.com/hotelops/recon/internal/inbox"
	"github.com/hotelops/recon/internal/model"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the newest inbox reports into an immutable run",
		Long: `Scan the inbox, select the newest report per (source, type, year),
validate and copy the selection into a content-addressed run directory,
and normalize it into per-year files.

Examples:
  # Ingest 2024 and 2025 reports
  recon ingest --year 2024 --year 2025`,
		RunE: runIngest,
	}

	cmd.Flags().IntSlice("year", nil, "report year to ingest (repeatable)")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetIntSlice("year")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Copying inbox files..."),
		progressbar.OptionSpinnerType(14),
	)

	ingestor := &inbox.Ingestor{
		Config: cfg,
		OnFile: func(selected model.SelectedInboxFile) {
			_ = bar.Add(1)
			slog.Debug("copied inbox file",
				"source", selected.Source,
				"report_type", selected.ReportType,
				"year", selected.Year)
		},
	}

	result, err := ingestor.Ingest(years)
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	ctx := cmd.Context()
	catalog, err := initCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()
	if err := catalog.RecordRun(ctx, &result.Manifest, result.RunRoot); err != nil {
		return err
	}

	if result.Reused {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Run %s already ingested, nothing to do", result.RunID)))
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Ingested run %s (%d files, %d normalized outputs)",
		result.RunID, len(result.Manifest.SelectedFiles), len(result.Manifest.NormalizationOutputs))))
	return nil
}
