package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hotelops/recon/internal/cli"
	"github.com/hotelops/recon/internal/mapping"
	"github.com/hotelops/recon/internal/reconcile"
)

func mappingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect mapping coverage and health",
	}

	cmd.AddCommand(mappingUnmappedCmd())
	cmd.AddCommand(mappingCollisionsCmd())
	cmd.AddCommand(mappingDriftCmd())
	cmd.AddCommand(mappingSuggestCmd())
	cmd.AddCommand(mappingMetricsCmd())
	return cmd
}

func addMappingRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntSlice("year", nil, "year to inspect (default: the run's years)")
	cmd.Flags().String("run", "", "run id (default: newest cataloged run)")
}

// mappingRunData loads the enriched rows of one run for the mapping
// diagnostics commands.
func mappingRunData(cmd *cobra.Command) (*mapping.Resolver, []mapping.EnrichedRow, []mapping.EnrichedRow, error) {
	years, _ := cmd.Flags().GetIntSlice("year")
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := pipelineConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	runRoot, manifest, err := resolveRun(cmd.Context(), cfg, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	resolver, err := newResolver(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	electra, hr, err := loadEnrichedRows(filepath.Join(runRoot, "normalized"), effectiveYears(years, manifest), resolver)
	if err != nil {
		return nil, nil, nil, err
	}
	return resolver, electra, hr, nil
}

func mappingUnmappedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unmapped",
		Short: "List source agencies and channels with no canonical target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, electra, hr, err := mappingRunData(cmd)
			if err != nil {
				return err
			}

			unmapped := mapping.FindUnmapped(append(electra, hr...))
			if len(unmapped) == 0 {
				fmt.Println(cli.FormatSuccess("Every entity is mapped"))
				return nil
			}

			rows := make([][]string, 0, len(unmapped))
			for _, u := range unmapped {
				rows = append(rows, []string{
					u.System, u.ItemType, u.SourceID, u.SourceName, u.Channel,
					u.Years, fmt.Sprintf("%d", u.Occurrences),
				})
			}
			fmt.Println(cli.FormatTitle("Unmapped entities"))
			fmt.Println(cli.RenderTable(
				[]string{"SYSTEM", "TYPE", "SOURCE ID", "SOURCE NAME", "CHANNEL", "YEARS", "ROWS"}, rows))
			return nil
		},
	}
	addMappingRunFlags(cmd)
	return cmd
}

func mappingCollisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collisions",
		Short: "Report mapping table collisions",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}
			bundle, err := mapping.Load(cfg.MappingAgenciesPath, cfg.MappingChannelsPath)
			if err != nil {
				return err
			}

			collisions := mapping.FindCollisions(bundle)
			if len(collisions) == 0 {
				fmt.Println(cli.FormatSuccess("No collisions in the mapping tables"))
				return nil
			}

			rows := make([][]string, 0, len(collisions))
			for _, c := range collisions {
				rows = append(rows, []string{c.MappingType, c.CollisionType, c.SourceSystem, c.SourceValue, c.CanonValue})
			}
			fmt.Println(cli.FormatTitle("Mapping collisions"))
			fmt.Println(cli.RenderTable([]string{"TYPE", "COLLISION", "SYSTEM", "SOURCE", "CANONICAL"}, rows))
			return nil
		},
	}
}

func mappingDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Flag canonical agencies present in only one source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, electra, hr, err := mappingRunData(cmd)
			if err != nil {
				return err
			}

			drift := mapping.DriftReport(electra, hr)
			if len(drift) == 0 {
				fmt.Println(cli.FormatSuccess("Both sources cover the same canonical agencies"))
				return nil
			}

			rows := make([][]string, 0, len(drift))
			for _, d := range drift {
				rows = append(rows, []string{d.Presence, d.CanonID, d.CanonName, d.Years})
			}
			fmt.Println(cli.FormatTitle("Agency drift"))
			fmt.Println(cli.RenderTable([]string{"PRESENCE", "CANON ID", "CANON NAME", "YEARS"}, rows))
			return nil
		},
	}
	addMappingRunFlags(cmd)
	return cmd
}

func mappingSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest canonical candidates for unmapped entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			topN, _ := cmd.Flags().GetInt("top")
			resolver, electra, hr, err := mappingRunData(cmd)
			if err != nil {
				return err
			}

			unmapped := mapping.FindUnmapped(append(electra, hr...))
			suggestions := mapping.SuggestUnmappedCandidates(resolver.Bundle, unmapped, topN)
			if len(suggestions) == 0 {
				fmt.Println(cli.FormatInfo("No candidates to suggest"))
				return nil
			}

			rows := make([][]string, 0, len(suggestions))
			for _, s := range suggestions {
				source := s.Entity.SourceName
				if source == "" {
					source = s.Entity.Channel
				}
				rows = append(rows, []string{
					s.Entity.System, source, s.CanonID, s.CanonName, fmt.Sprintf("%.2f", s.Score),
				})
			}
			fmt.Println(cli.FormatTitle("Mapping suggestions"))
			fmt.Println(cli.RenderTable([]string{"SYSTEM", "SOURCE", "CANON ID", "CANON NAME", "SCORE"}, rows))
			return nil
		},
	}
	addMappingRunFlags(cmd)
	cmd.Flags().Int("top", 3, "candidates per unmapped entity")
	return cmd
}

func mappingMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Measure how much the mapping tables reduce unknown attribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			years, _ := cmd.Flags().GetIntSlice("year")
			runID, _ := cmd.Flags().GetString("run")
			dim, _ := cmd.Flags().GetString("dim")

			cfg, err := pipelineConfig()
			if err != nil {
				return err
			}
			runRoot, manifest, err := resolveRun(cmd.Context(), cfg, runID)
			if err != nil {
				return err
			}
			resolver, err := newResolver(cfg)
			if err != nil {
				return err
			}

			normalizedRoot := filepath.Join(runRoot, "normalized")
			metrics, err := reconcile.UnknownRateImprovement(
				effectiveYears(years, manifest), dim, normalizedRoot, normalizedRoot, resolver)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Unknown-rate improvement by %s", dim)))
			fmt.Println(cli.RenderUnknownRates(metrics))
			return nil
		},
	}
	addMappingRunFlags(cmd)
	cmd.Flags().String("dim", reconcile.DimAgency, "dimension: agency or channel")
	return cmd
}
