package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chazu/trayforge/pkg/engine"
	"github.com/chazu/trayforge/pkg/export"
	"github.com/chazu/trayforge/pkg/session"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.lisp>",
	Short: "Evaluate a part script and build every part it defines",
	Long: `Evaluates a Lisp part script. Each (defpart ...) is assembled, validated
and written as <out>/<part>.stl. (param "tray.length") reads the current
parameters, so --config and --set apply to scripts too. With --json the
render meshes and messages are printed to stdout instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)

	scriptCmd.Flags().StringP("out", "o", ".", "output directory")
	scriptCmd.Flags().Bool("json", false, "print meshes and messages as JSON")
	scriptCmd.Flags().Duration("timeout", engine.EvalTimeout, "evaluation time limit")
	scriptCmd.Flags().Bool("strict", false, "fail when a mesh is not closed or a boolean step fell back")
}

func runScript(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	strict, _ := cmd.Flags().GetBool("strict")

	source, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	s := session.New(env.cfg, env.kernel,
		session.WithSink(env.sink),
		session.WithLogger(log.Logger),
		session.WithEngineOptions(engine.WithTimeout(timeout)),
	)
	result := s.Evaluate(string(source))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, w := range result.Warnings {
			logMessage(log.Warn(), args[0], w).Msg(w.Message)
		}
		for _, e := range result.Errors {
			logMessage(log.Error(), args[0], e).Msg(e.Message)
		}
	}
	if !result.OK() {
		return fmt.Errorf("%s: %d error(s)", args[0], len(result.Errors))
	}

	if !asJSON {
		for _, o := range result.Outputs {
			report(o)
		}
		paths, err := export.WriteParts(out, result.Outputs)
		if err != nil {
			return err
		}
		for i, p := range paths {
			log.Info().Str("part", result.Outputs[i].Name).Str("path", p).Msg("written")
		}
	}

	if strict {
		return strictCheck(result.Outputs)
	}
	return nil
}

func logMessage(ev *zerolog.Event, file string, m session.Message) *zerolog.Event {
	ev = ev.Str("file", file)
	if m.Line > 0 {
		ev = ev.Int("line", m.Line).Int("col", m.Col)
	}
	if m.Node != "" {
		ev = ev.Str("node", m.Node)
	}
	return ev
}
