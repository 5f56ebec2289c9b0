// Package main is the hfrnet-totals command-line interface: it wires
// config.Loader, confdb.DB, and process.Run behind cobra subcommands,
// grounded on spatialmodel-inmap/inmap/cmd's root/run/grid command
// layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/logging"
)

var (
	configFile string

	// loader and log are resolved once in PersistentPreRunE and shared by
	// every subcommand's RunE.
	loader *config.Loader
	log    *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hfrnet-totals",
	Short: "HF radar total-vector processing pipeline (RTV/STC/LTA).",
	Long: "hfrnet-totals fuses HF radar radial velocity files into gridded total\n" +
		"vectors (RTV), sub-tidal currents (STC), and long-term averages (LTA).\n" +
		"Use the subcommands below to run or reprocess a (domain, resolution) pipeline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		loader, err = config.NewLoader(configFile)
		if err != nil {
			return labelErr(err)
		}
		lc := loader.Log()
		log, err = logging.New(lc.File)
		if err != nil {
			return labelErr(err)
		}
		sev, err := logging.ParseSeverity(lc.Level)
		if err != nil {
			return labelErr(err)
		}
		log.SetLogLevel(sev)
		cmdSev, err := logging.ParseSeverity(lc.CmdWinLogLevel)
		if err != nil {
			return labelErr(err)
		}
		log.SetCmdWinLogLevel(cmdSev)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			if err := log.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	},
}

func labelErr(err error) error {
	if err != nil {
		return fmt.Errorf("hfrnet-totals: %v", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "/etc/hfrnet-totals/config.toml", "configuration file location")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
