package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/chazu/trayforge/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Plot the rail and slot cross-sections",
	Long: `Draws the rail section seated in its slot for the current joint
parameters, so clearance and chamfers can be checked before printing.
The output extension (png, svg, pdf) picks the format.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		inches, _ := cmd.Flags().GetFloat64("size")

		pair, err := env.cfg.Joint.Pair()
		if err != nil {
			return err
		}
		if err := profile.Save(out, pair, vg.Length(inches)*vg.Inch); err != nil {
			return err
		}
		log.Info().Str("path", out).Float64("gap", pair.Gap()).Msg("profile written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().StringP("out", "o", "profile.png", "output image")
	profileCmd.Flags().Float64("size", 4, "image side in inches")
}
