package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/analytics"
	"github.com/hotelops/recon/internal/cli"
)

func analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize normalized Electra sales",
		Long: `Per-year totals from the TOTAL sentinel rows, per-agency totals, and
cross-checks between the agency breakdown and the daily totals.`,
		RunE: runAnalytics,
	}

	cmd.Flags().IntSlice("year", nil, "year to summarize (default: the run's years)")
	cmd.Flags().String("run", "", "run id (default: newest cataloged run)")
	return cmd
}

func runAnalytics(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetIntSlice("year")
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	runRoot, manifest, err := resolveRun(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}

	report, err := analytics.Summarize(effectiveYears(years, manifest), filepath.Join(runRoot, "normalized"))
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Electra analytics (run %s)", manifest.RunID)))

	summaryRows := make([][]string, 0, len(report.Summaries))
	for _, s := range report.Summaries {
		summaryRows = append(summaryRows, []string{
			fmt.Sprintf("%d", s.Year),
			fmt.Sprintf("%d", s.Days),
			fmt.Sprintf("%.2f", s.GrossTotal),
			fmt.Sprintf("%.2f", s.NetTotal),
		})
	}
	fmt.Println(cli.StyleTitle("Per-year totals"))
	fmt.Println(cli.RenderTable([]string{"YEAR", "DAYS", "GROSS", "NET"}, summaryRows))

	if len(report.AgencyTotals) > 0 {
		agencyRows := make([][]string, 0, len(report.AgencyTotals))
		for _, a := range report.AgencyTotals {
			agencyRows = append(agencyRows, []string{
				fmt.Sprintf("%d", a.Year), a.AgencyID, a.AgencyName,
				fmt.Sprintf("%.2f", a.GrossTotal), fmt.Sprintf("%.2f", a.NetTotal),
			})
		}
		fmt.Println(cli.StyleTitle("Per-agency totals"))
		fmt.Println(cli.RenderTable([]string{"YEAR", "AGENCY ID", "AGENCY NAME", "GROSS", "NET"}, agencyRows))
	}

	if len(report.Issues) == 0 {
		fmt.Println(cli.FormatSuccess("Agency breakdown agrees with daily totals"))
		return nil
	}
	issueRows := make([][]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issueRows = append(issueRows, []string{
			issue.Date,
			fmt.Sprintf("%.2f", issue.TotalGross),
			fmt.Sprintf("%.2f", issue.AgencyGross),
			fmt.Sprintf("%+.2f", issue.Delta),
		})
	}
	fmt.Println(cli.FormatWarning("Agency breakdown disagrees with daily totals"))
	fmt.Println(cli.RenderTable([]string{"DATE", "TOTAL GROSS", "AGENCY GROSS", "DELTA"}, issueRows))
	return nil
}
