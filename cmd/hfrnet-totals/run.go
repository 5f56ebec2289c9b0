package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/confdb"
	"github.com/ioos/hfrnet-totals/process"
)

var (
	runDomain     string
	runResolution string
)

func init() {
	runCmd.PersistentFlags().StringVar(&runDomain, "domain", "", "domain name, e.g. socal")
	runCmd.PersistentFlags().StringVar(&runResolution, "resolution", "", "grid resolution, e.g. 6km")
	runCmd.MarkPersistentFlagRequired("domain")
	runCmd.MarkPersistentFlagRequired("resolution")
	rootCmd.AddCommand(runCmd)
	runCmd.AddCommand(reprocessCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pass of rtv/stc/lta for a domain/resolution in near-real-time mode.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return labelErr(dispatch(config.RunMode{}))
	},
}

var (
	reprocessFrom string
	reprocessTo   string
	reprocessLock bool
)

func init() {
	reprocessCmd.Flags().StringVar(&reprocessFrom, "from", "", "reprocess range start, RFC3339")
	reprocessCmd.Flags().StringVar(&reprocessTo, "to", "", "reprocess range end, RFC3339")
	reprocessCmd.Flags().BoolVar(&reprocessLock, "lock", true, "acquire the single-writer lock while reprocessing")
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Reprocess an explicit range of hours for a domain/resolution.",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := time.Parse(time.RFC3339, reprocessFrom)
		if err != nil {
			return labelErr(err)
		}
		to, err := time.Parse(time.RFC3339, reprocessTo)
		if err != nil {
			return labelErr(err)
		}
		var times []time.Time
		for t := from; !t.After(to); t = t.Add(time.Hour) {
			times = append(times, t)
		}
		mode := config.RunMode{Reprocess: &config.Reprocess{Times: times, Lock: reprocessLock}}
		return labelErr(dispatch(mode))
	},
}

// dispatch opens the configuration database, migrates it, and runs the
// orchestrator once for runDomain/runResolution under the given mode.
func dispatch(mode config.RunMode) error {
	confDB := confdb.Open(loader.ConfDB())
	if err := confDB.Migrate(); err != nil {
		return err
	}

	// The radial-file parser is deliberately left unwired here: LLUV/WVM9
	// text parsing is peripheral plumbing outside this package's scope
	// (see radial.Parser's doc comment), so a deployment links against a
	// build that supplies one.
	deps := process.Dependencies{}

	return process.Run(context.Background(), log, loader, confDB, runDomain, runResolution, mode, deps, time.Now())
}
