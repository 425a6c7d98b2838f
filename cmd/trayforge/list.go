package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chazu/trayforge/pkg/config"
	"github.com/chazu/trayforge/pkg/parts"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the parts that can be generated",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, p := range parts.Parts() {
			fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Description)
		}
		return tw.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective parameters as YAML",
	Long: `Prints the parameters every command would use after --config and --set
are applied. With --keys, prints every key --set accepts instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keys, _ := cmd.Flags().GetBool("keys"); keys {
			ks, err := config.Keys(env.cfg)
			if err != nil {
				return err
			}
			for _, k := range ks {
				v, err := config.Get(env.cfg, k)
				if err != nil {
					return err
				}
				fmt.Printf("%s=%v\n", k, v)
			}
			return nil
		}
		return config.Encode(os.Stdout, env.cfg)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("keys", false, "list settable keys with their values")
}
