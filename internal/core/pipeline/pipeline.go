// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-18

// Package pipeline runs derived action chains: ordered steps where each step
// depends on the ones before it. A failing step aborts the rest of its chain
// but leaves earlier steps committed.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ErrSkipPipeline indicates that the chain should stop gracefully.
// This is not an error condition, just an early exit (e.g. nothing to change).
var ErrSkipPipeline = errors.New("skip remaining pipeline steps")

// Step defines the interface that all chain steps must implement.
type Step interface {
	// Name returns the identifier used in logs.
	Name() string

	// Run executes the step's logic.
	// It should return ErrSkipPipeline to stop the chain gracefully,
	// or any other error to indicate failure.
	Run(ctx *Context) error
}

// Result holds the accumulated outcome of one chain.
type Result struct {
	Completed  []string
	Skipped    bool
	SkipReason string
	FailedStep string
	Err        error
}

// Context carries data between the steps of one chain.
type Context struct {
	// Ctx is the Go context for cancellation and timeouts.
	Ctx context.Context

	// Log is scoped to the inbound event being processed.
	Log *log.Entry

	// Result accumulates the chain outcome.
	Result *Result

	// Metadata allows steps to pass values (issue keys, numbers) to later steps.
	Metadata map[string]interface{}
}

// NewContext creates a fresh chain context.
func NewContext(ctx context.Context, logger *log.Entry) *Context {
	return &Context{
		Ctx:      ctx,
		Log:      logger,
		Result:   &Result{},
		Metadata: make(map[string]interface{}),
	}
}

// Skip marks the chain as skipped with a reason and returns ErrSkipPipeline.
func (c *Context) Skip(reason string) error {
	c.Result.Skipped = true
	c.Result.SkipReason = reason
	return ErrSkipPipeline
}

// String returns a metadata value as a string, or "" if absent.
func (c *Context) String(key string) string {
	s, _ := c.Metadata[key].(string)
	return s
}

// Int returns a metadata value as an int, or 0 if absent.
func (c *Context) Int(key string) int {
	n, _ := c.Metadata[key].(int)
	return n
}

// funcStep adapts a function to the Step interface.
type funcStep struct {
	name string
	fn   func(ctx *Context) error
}

func (s *funcStep) Name() string           { return s.name }
func (s *funcStep) Run(ctx *Context) error { return s.fn(ctx) }

// NewStep wraps fn as a named step.
func NewStep(name string, fn func(ctx *Context) error) Step {
	return &funcStep{name: name, fn: fn}
}

// Pipeline executes a sequence of steps.
type Pipeline struct {
	name  string
	steps []Step
}

// New creates a new chain with the given steps.
func New(name string, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: steps}
}

// Run executes all steps in order.
// Stops on the first error (unless it's ErrSkipPipeline, which is graceful).
func (p *Pipeline) Run(ctx *Context) error {
	for _, step := range p.steps {
		if err := step.Run(ctx); err != nil {
			if errors.Is(err, ErrSkipPipeline) {
				return nil
			}
			ctx.Result.FailedStep = step.Name()
			ctx.Result.Err = err
			return fmt.Errorf("step '%s' of '%s' failed: %w", step.Name(), p.name, err)
		}
		ctx.Result.Completed = append(ctx.Result.Completed, step.Name())
	}
	return nil
}

// RunLogged runs the chain and logs a failure instead of returning it.
// Partial application is accepted: completed steps are not undone.
func (p *Pipeline) RunLogged(ctx *Context) bool {
	if err := p.Run(ctx); err != nil {
		entry := ctx.Log.WithError(err).WithField("chain", p.name)
		if len(ctx.Result.Completed) > 0 {
			entry = entry.WithField("committed", ctx.Result.Completed)
		}
		entry.Error("action chain aborted")
		return false
	}
	if ctx.Result.Skipped {
		ctx.Log.WithField("chain", p.name).Debugf("chain skipped: %s", ctx.Result.SkipReason)
	}
	return true
}

// AddStep appends a step to the chain, for chains whose steps depend on configuration.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}
