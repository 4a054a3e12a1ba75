package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/cli"
	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile Electra against HotelRunner for an ingested run",
		Long: `Compare daily or monthly gross sales between the two systems, overall
or split by canonical agency/channel, with explained mismatches.

Examples:
  # Daily totals for the newest run
  recon reconcile

  # Monthly totals split by canonical agency
  recon reconcile --granularity monthly --dim agency

  # Raw (unmapped) channel split for a specific run
  recon reconcile --dim channel --mode raw --run inbox_2025-06-30_a1b2c3d4e5f6`,
		RunE: runReconcile,
	}

	cmd.Flags().IntSlice("year", nil, "year to reconcile (default: the run's years)")
	cmd.Flags().String("granularity", "daily", "daily or monthly")
	cmd.Flags().String("dim", "", "split by dimension: agency or channel")
	cmd.Flags().String("mode", reconcile.DimModeCanonical, "dimension values: canonical or raw")
	cmd.Flags().String("run", "", "run id (default: newest cataloged run)")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetIntSlice("year")
	granularity, _ := cmd.Flags().GetString("granularity")
	dim, _ := cmd.Flags().GetString("dim")
	mode, _ := cmd.Flags().GetString("mode")
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
	reconYears := effectiveYears(years, manifest)

	var rows []model.ReconRow
	var rollups []model.YearRollup
	if dim == "" {
		if granularity == "daily" {
			rows, rollups, err = reconcile.Daily(reconYears, normalizedRoot, normalizedRoot)
		} else {
			rows, rollups, err = reconcile.Monthly(reconYears, normalizedRoot, normalizedRoot)
		}
	} else {
		resolver, resolverErr := newResolver(cfg)
		if resolverErr != nil {
			return resolverErr
		}
		if granularity == "daily" {
			rows, rollups, err = reconcile.ByDimDaily(reconYears, dim, normalizedRoot, normalizedRoot, resolver, mode)
		} else {
			rows, rollups, err = reconcile.ByDimMonthly(reconYears, dim, normalizedRoot, normalizedRoot, resolver, mode)
		}
	}
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Reconciliation (%s run %s)", granularity, manifest.RunID)))
	fmt.Println(cli.RenderReconRows(rows, dim != ""))
	fmt.Println(cli.StyleTitle("Per-year summary"))
	fmt.Println(cli.RenderYearRollups(rollups))
	return nil
}
