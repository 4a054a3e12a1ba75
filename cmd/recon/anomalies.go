package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/cli"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/reconcile"
)

func anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Detect spikes, drops, and top mismatch contributors",
		Long: `Run the dimensioned reconciliation and flag irregularities: moves
beyond the trailing-window average, dimension values appearing mid-series,
and the largest mismatch contributors per period.

Examples:
  # Monthly agency anomalies for the newest run
  recon anomalies

  # Daily channel anomalies
  recon anomalies --dim channel --granularity daily`,
		RunE: runAnomalies,
	}

	cmd.Flags().IntSlice("year", nil, "year to analyze (default: the run's years)")
	cmd.Flags().String("granularity", "monthly", "daily or monthly")
	cmd.Flags().String("dim", reconcile.DimAgency, "dimension: agency or channel")
	cmd.Flags().String("run", "", "run id (default: newest cataloged run)")
	return cmd
}

func runAnomalies(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetIntSlice("year")
	granularity, _ := cmd.Flags().GetString("granularity")
	dim, _ := cmd.Flags().GetString("dim")
	runID, _ := cmd.Flags().GetString("run")

	if granularity != "daily" && granularity != "monthly" {
		return fmt.Errorf("invalid granularity: %s (expected daily or monthly)", granularity)
	}

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	runRoot, manifest, err := resolveRun(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}
	normalizedRoot := filepath.Join(runRoot, "normalized")
	analyzeYears := effectiveYears(years, manifest)

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}

	var rows []model.ReconRow
	if granularity == "daily" {
		rows, _, err = reconcile.ByDimDaily(analyzeYears, dim, normalizedRoot, normalizedRoot, resolver, reconcile.DimModeCanonical)
	} else {
		rows, _, err = reconcile.ByDimMonthly(analyzeYears, dim, normalizedRoot, normalizedRoot, resolver, reconcile.DimModeCanonical)
	}
	if err != nil {
		return err
	}

	anomalies := reconcile.DetectAnomalies(rows)
	if len(anomalies) == 0 {
		fmt.Println(cli.FormatSuccess("No anomalies detected"))
		return nil
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Anomalies (%s by %s, run %s)", granularity, dim, manifest.RunID)))
	fmt.Println(cli.RenderAnomalies(anomalies))
	return nil
}
