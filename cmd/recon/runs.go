package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/cli"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and inspect cataloged ingestion runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cataloged runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}
			catalog, err := initCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = catalog.Close() }()

			runs, err := catalog.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(cli.FormatInfo("No ingested runs yet"))
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID, r.Years, fmt.Sprintf("%d", r.FileCount),
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Println(cli.FormatTitle("Ingestion runs"))
			fmt.Println(cli.RenderTable([]string{"RUN ID", "YEARS", "FILES", "CREATED"}, rows))
			return nil
		},
	}
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and the files it pinned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}
			catalog, err := initCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = catalog.Close() }()

			run, err := catalog.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Run %s", run.RunID)))
			fmt.Println(cli.SubtleStyle.Render(run.RunPath))

			rows := make([][]string, 0, len(run.Files))
			for _, f := range run.Files {
				rows = append(rows, []string{
					f.Source, f.ReportType, fmt.Sprintf("%d", f.Year), f.ReportDate,
					f.Sha256[:12], fmt.Sprintf("%d", f.SizeBytes), f.InboxPath,
				})
			}
			fmt.Println(cli.RenderTable(
				[]string{"SOURCE", "TYPE", "YEAR", "REPORT DATE", "SHA256", "BYTES", "INBOX PATH"}, rows))
			return nil
		},
	}
}
