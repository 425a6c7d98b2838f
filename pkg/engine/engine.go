// Package engine evaluates part scripts. It wraps zygomys in a sandboxed
// environment and produces a graph.DesignGraph from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/trayforge/pkg/graph"
	"github.com/chazu/trayforge/pkg/parts"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a graph that
// fails validation.
type EvalError struct {
	Line    int
	Col     int
	Message string
	NodeID  graph.NodeID
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if !e.NodeID.IsZero() {
		return fmt.Sprintf("node %s: %s", e.NodeID.Short(), e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	NodeID  graph.NodeID
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	Graph    *graph.DesignGraph
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for part scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	cfg     parts.Config
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine. cfg supplies (param ...) values and the
// joint dimensions rail and slot default to.
func NewEngine(cfg parts.Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, timeout: EvalTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate takes script source and produces a new DesignGraph.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval/validation failure: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	res, err := e.EvaluateAll(source)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Errors) > 0 {
		return nil, res.Errors, nil
	}
	return res.Graph, nil, nil
}

// EvaluateAll is Evaluate with warnings. Graph is set only when there are
// no errors.
func (e *Engine) EvaluateAll(source string) (EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		g, evalErrs, err := e.evaluate(source)
		ch <- evalResult{graph: g, errors: evalErrs, err: err}
	}()

	g, evalErrs, err := waitWithTimeout(ch, e.timeout, gen, &e.mu, &e.generation)
	if err != nil || len(evalErrs) > 0 {
		return EvalResult{Errors: evalErrs}, err
	}

	vr := graph.ValidateAll(g)
	res := EvalResult{Graph: g}
	for _, ve := range vr.Errors {
		res.Errors = append(res.Errors, EvalError{Message: ve.Message, NodeID: ve.NodeID})
	}
	for _, w := range vr.Warnings {
		res.Warnings = append(res.Warnings, EvalWarning{Message: w.Message, NodeID: w.NodeID})
	}
	if len(res.Errors) > 0 {
		res.Graph = nil
	}
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.DesignGraph, []EvalError, error) {
	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(source) == "" {
		return graph.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(e.cfg)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b.g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
