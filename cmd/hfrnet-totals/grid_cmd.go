package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioos/hfrnet-totals/grid"
)

var (
	gridDomain         string
	gridResolution     string
	gridSearchRadiusKM float64
)

func init() {
	gridCmd.Flags().StringVar(&gridDomain, "domain", "", "domain name, e.g. socal")
	gridCmd.Flags().StringVar(&gridResolution, "resolution", "", "grid resolution, e.g. 6km")
	gridCmd.Flags().Float64Var(&gridSearchRadiusKM, "search-radius", 30, "per-cell search radius in km, for the small-circle preview")
	rootCmd.AddCommand(gridCmd)
}

// gridCmd loads the configured grid/landmask NetCDF files for a
// domain/resolution and reports their ocean-cell and land-ring counts, a
// quick sanity check before running the pipeline against them.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Inspect the grid and landmask NetCDF files configured for a domain/resolution.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelErr(inspectGrid())
	},
}

func inspectGrid() error {
	g, err := grid.LoadNetCDF(loader.GridFile(gridDomain, gridResolution), gridDomain, gridResolution, gridSearchRadiusKM)
	if err != nil {
		return fmt.Errorf("loading grid: %v", err)
	}
	lm, err := grid.LoadLandmaskNetCDF(loader.LandmaskFile(gridDomain), gridDomain)
	if err != nil {
		return fmt.Errorf("loading landmask: %v", err)
	}
	fmt.Printf("grid %s/%s: %d ocean cells, %d x %d size, %d land rings\n",
		gridDomain, gridResolution, len(g.OceanIndices), g.Size[0], g.Size[1], len(lm.Land))
	return nil
}
