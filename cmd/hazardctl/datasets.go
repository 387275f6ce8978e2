package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var DatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List regions and datasets in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rc, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()

		regions, err := rc.Regions(cmd.Context())
		if err != nil {
			return err
		}
		datasets, err := rc.Datasets(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REGION\tSPACING\tLAT\tLON")
		for _, r := range regions {
			fmt.Fprintf(tw, "%s\t%g\t[%g, %g]\t[%g, %g]\n",
				r.Value, r.GridSpacing, r.MinLatitude, r.MaxLatitude, r.MinLongitude, r.MaxLongitude)
		}
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "EDITION\tREGION\tPERIOD\tVS30\tIML\tID")
		for _, ds := range datasets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				ds.Edition, ds.Region, ds.SpectralPeriod, ds.Vs30, len(ds.IML), ds.ID)
		}
		return tw.Flush()
	},
}

func init() {
	RootCmd.AddCommand(DatasetsCmd)
}
