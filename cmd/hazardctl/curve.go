package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/httpclient"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard"
)

var (
	curveReq     model.CurveRequest
	curveFormat  string
	curveWorkers int
	curveServer  string
)

// curves computes locally against the store, or asks a running service
// when --server is set.
func curves(cmd *cobra.Command) ([]model.InterpolatedCurve, error) {
	if curveServer != "" {
		c, err := httpclient.NewHazardClient(curveServer, nil)
		if err != nil {
			return nil, err
		}
		return c.Curves(cmd.Context(), curveReq)
	}

	rc, err := openStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	svc := hazard.New(rc, hazard.WithLogger(cmdLogger(cmd)), hazard.WithMaxWorkers(curveWorkers))
	return svc.Curves(cmd.Context(), curveReq)
}

var CurveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Interpolate hazard curves for a point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if curveFormat != "json" && curveFormat != "table" {
			return fmt.Errorf("unknown --format %q (json or table)", curveFormat)
		}

		result, err := curves(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if curveFormat == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range result {
			m := c.Metadata
			fmt.Fprintf(tw, "# %s %s %s vs30=%s (%g, %g)\n", m.Edition, m.Region, m.SpectralPeriod, m.Vs30, m.Latitude, m.Longitude)
			fmt.Fprintln(tw, "IML\tAFE")
			for _, p := range c.Data {
				fmt.Fprintf(tw, "%g\t%g\n", p.X, p.Y)
			}
		}
		return tw.Flush()
	},
}

func init() {
	f := CurveCmd.Flags()
	f.Float64Var(&curveReq.Latitude, "latitude", 0, "Latitude in degrees")
	f.Float64Var(&curveReq.Longitude, "longitude", 0, "Longitude in degrees")
	f.StringVar(&curveReq.Edition, "edition", "", "Model edition")
	f.StringVar(&curveReq.Region, "region", "", "Model region (default: finest region covering the point)")
	f.StringVar(&curveReq.SpectralPeriod, "spectral-period", "", "Spectral period (default: all available)")
	f.StringVar(&curveReq.Vs30, "vs30", "", "Site class vs30")
	f.StringVar(&curveFormat, "format", "json", "Output format: json or table")
	f.IntVar(&curveWorkers, "workers", 4, "Curves computed concurrently")
	f.StringVar(&curveServer, "server", "", "Query a running service at this API URL instead of the store")
	for _, name := range []string{"latitude", "longitude", "edition", "vs30"} {
		_ = CurveCmd.MarkFlagRequired(name)
	}
	RootCmd.AddCommand(CurveCmd)

	resetFlagsFns = append(resetFlagsFns, func() {
		curveReq = model.CurveRequest{}
		curveFormat = "json"
		curveWorkers = 4
		curveServer = ""
	})
}
