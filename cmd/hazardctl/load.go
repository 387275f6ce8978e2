package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/hazard-curve-service/internal/loader"
)

var validateOnly bool

var LoadCmd = &cobra.Command{
	Use:   "load BUNDLE.yaml [BUNDLE.yaml...]",
	Short: "Validate and load dataset bundles into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cmdLogger(cmd)

		bundles := make([]*loader.Bundle, 0, len(args))
		for _, path := range args {
			b, err := loader.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := b.Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			bundles = append(bundles, b)
		}
		if validateOnly {
			fmt.Fprintf(cmd.OutOrStdout(), "%d bundle(s) valid\n", len(bundles))
			return nil
		}

		rc, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		var total loader.Summary
		for i, b := range bundles {
			sum, err := loader.Apply(cmd.Context(), rc, b, log)
			if err != nil {
				return fmt.Errorf("%s: %w", args[i], err)
			}
			total.Regions += sum.Regions
			total.Datasets += sum.Datasets
			total.Points += sum.Points
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d region(s), %d dataset(s), %d grid point(s)\n",
			total.Regions, total.Datasets, total.Points)
		return nil
	},
}

func init() {
	LoadCmd.Flags().BoolVar(&validateOnly, "validate-only", false, "Only parse and validate the bundles")
	RootCmd.AddCommand(LoadCmd)

	resetFlagsFns = append(resetFlagsFns, func() { validateOnly = false })
}
