package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of trayforge",
	// The root pre-run loads config and kernels; version needs neither.
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		v := version
		if v == "" {
			if info, ok := debug.ReadBuildInfo(); ok {
				v = info.Main.Version
			}
		}
		fmt.Printf("trayforge version %s\n", v)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
