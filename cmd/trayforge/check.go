package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chazu/trayforge/pkg/export"
	"github.com/chazu/trayforge/pkg/validate"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.stl>...",
	Short: "Validate existing STL files",
	Long: `Reads each STL file, welds it into a solid and prints its mesh health.
The volume is measured a second time with model3d as a cross-check. With
--repair the repaired mesh is written back next to the input as
<name>.repaired.stl.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Float64("weld", 1e-4, "distance under which STL vertices are merged")
	checkCmd.Flags().Bool("repair", false, "attempt repair and write the result")
	checkCmd.Flags().Bool("strict", false, "fail when a mesh is not closed")
}

func runCheck(cmd *cobra.Command, args []string) error {
	tol, _ := cmd.Flags().GetFloat64("weld")
	repair, _ := cmd.Flags().GetBool("repair")
	strict, _ := cmd.Flags().GetBool("strict")

	v := validate.New(validate.WithSink(env.sink), validate.WithWeldTolerance(tol))
	var bad []string
	for _, path := range args {
		s, err := export.LoadSTL(path, tol)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		rep := validate.Inspect(s)
		if repair {
			r, fixed, err := v.Validate(path, s)
			if err != nil {
				return err
			}
			rep = r
			if r.Repaired {
				out := strings.TrimSuffix(path, filepath.Ext(path)) + ".repaired.stl"
				if err := export.SaveSTL(out, fixed); err != nil {
					return err
				}
				log.Info().Str("path", out).Msg("repaired mesh written")
			}
		}

		cc := export.CrossCheck(s)
		fmt.Printf("%s: %s\n", path, rep)
		if d := math.Abs(cc.Volume - s.Volume()); d > 1e-6*math.Max(1, math.Abs(cc.Volume)) {
			log.Warn().Str("path", path).Float64("model3d_volume", cc.Volume).Float64("volume", s.Volume()).Msg("volume disagrees with model3d")
		}
		if cc.NeedsRepair {
			log.Debug().Str("path", path).Msg("model3d reports the mesh needs repair")
		}
		if !rep.Closed {
			bad = append(bad, path)
		}
	}
	if strict && len(bad) > 0 {
		return fmt.Errorf("%w: %v", errNotClosed, bad)
	}
	return nil
}
