package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chazu/trayforge/pkg/export"
	"github.com/chazu/trayforge/pkg/parts"
	"github.com/chazu/trayforge/pkg/validate"
)

// Errors returned under --strict.
var (
	errNotClosed = errors.New("mesh not closed")
	errDegraded  = errors.New("boolean step fell back")
)

var generateCmd = &cobra.Command{
	Use:   "generate [part...]",
	Short: "Build parts and write them as STL",
	Long: `Builds each named part from the current parameters, validates the mesh
and writes <out>/<part>.stl. With --all every known part is built. When a
single part is built and --out ends in .stl, that file is written instead.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("out", "o", ".", "output directory, or a .stl file for a single part")
	generateCmd.Flags().Bool("all", false, "build every known part")
	generateCmd.Flags().Bool("strict", false, "fail when a mesh is not closed or a boolean step fell back")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	out, _ := cmd.Flags().GetString("out")
	strict, _ := cmd.Flags().GetBool("strict")

	names := args
	if all {
		names = parts.Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("no parts named; try --all or one of: %s", strings.Join(parts.Names(), ", "))
	}

	c := newCompositor()
	v := validate.New(validate.WithSink(env.sink))
	outs := make([]parts.Output, 0, len(names))
	for _, name := range names {
		o, err := parts.Build(name, env.cfg, c, v)
		if err != nil {
			return err
		}
		report(o)
		outs = append(outs, o)
	}

	if len(outs) == 1 && strings.EqualFold(filepath.Ext(out), ".stl") {
		if err := export.SaveSTL(out, outs[0].Solid); err != nil {
			return err
		}
		log.Info().Str("part", outs[0].Name).Str("path", out).Msg("written")
	} else {
		paths, err := export.WriteParts(out, outs)
		if err != nil {
			return err
		}
		for i, p := range paths {
			log.Info().Str("part", outs[i].Name).Str("path", p).Msg("written")
		}
	}

	if strict {
		return strictCheck(outs)
	}
	return nil
}

func report(o parts.Output) {
	fmt.Printf("%-10s %s\n", o.Name, o.Report)
	for _, st := range o.Result.Steps {
		if !st.Succeeded {
			fmt.Printf("%-10s   fallback at %s (%s): %v\n", "", st.Label, st.Op, st.Err)
		}
	}
}

// strictCheck fails on open meshes and on degraded ones. A union that fell
// back to concatenation is closed but overlaps itself.
func strictCheck(outs []parts.Output) error {
	var open, degraded []string
	for _, o := range outs {
		if !o.Report.Closed {
			open = append(open, o.Name)
		}
		if o.Report.Degraded {
			degraded = append(degraded, o.Name)
		}
	}
	var errs []error
	if len(open) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", errNotClosed, strings.Join(open, ", ")))
	}
	if len(degraded) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", errDegraded, strings.Join(degraded, ", ")))
	}
	return errors.Join(errs...)
}
