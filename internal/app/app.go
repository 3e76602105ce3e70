// Package app wires configuration, logging, loading, windowing and the
// engine into the runnable application.
package app

import (
	"context"
	"fmt"
	"io"

	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/taskloom/internal/ctxlog"
	"github.com/vk/taskloom/internal/engine"
	"github.com/vk/taskloom/internal/hcl"
	"github.com/vk/taskloom/internal/nodectx"
	"github.com/vk/taskloom/internal/task"
	"github.com/vk/taskloom/internal/window"
)

// App is one configured application instance.
type App struct {
	out      io.Writer
	cfg      *Config
	loader   *hcl.Loader
	registry *engine.Registry
}

// NewApp assembles an App. The registry comes pre-populated with the
// built-in handlers; callers may register more before Run.
func NewApp(outW io.Writer, cfg *Config, loader *hcl.Loader) *App {
	registry := engine.NewRegistry()
	registerBuiltins(registry)
	return &App{out: outW, cfg: cfg, loader: loader, registry: registry}
}

// Registry exposes the handler registry for additional registrations.
func (a *App) Registry() *engine.Registry {
	return a.registry
}

// Run loads the pipeline and records, windows the batch, and executes one
// context tree per window, printing each root's folded outputs as JSON.
func (a *App) Run(ctx context.Context) error {
	logger := newLogger(a.cfg.LogLevel, a.cfg.LogFormat, a.out)
	ctx = ctxlog.WithLogger(ctx, logger)

	pipeline, err := a.loader.LoadFile(ctx, a.cfg.PipelinePath)
	if err != nil {
		return err
	}

	b, err := loadRecords(a.cfg.RecordsPath)
	if err != nil {
		return err
	}
	logger.Info("records loaded", "rows", b.NumRows(), "columns", len(b.Columns()))

	var t task.Task
	if pipeline.Task != nil {
		t = task.New(pipeline.Task.Kind, pipeline.Task.Params)
	}

	producer := &window.Producer{
		Size:                 a.cfg.WindowSize,
		EnsureSliceableIndex: a.cfg.EnsureSliceableIndex,
		Task:                 t,
	}
	msgs, err := producer.Produce(ctx, b)
	if err != nil {
		return err
	}
	logger.Info("batch windowed", "windows", len(msgs), "window_size", a.cfg.WindowSize)

	eng := engine.New(a.registry)
	for i, msg := range msgs {
		// Each window seeds exactly one root context. The root carries the
		// task popped from the message, so every node of the tree sees it.
		rootTask, _ := msg.PopTask()
		root := nodectx.NewRoot(rootTask, msg)

		if err := eng.Run(ctx, root, pipeline); err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}

		outputs := root.Outputs()
		rendered, err := ctyjson.Marshal(outputs, outputs.Type())
		if err != nil {
			return fmt.Errorf("rendering window %d outputs: %w", i, err)
		}
		fmt.Fprintln(a.out, string(rendered))
	}

	logger.Info("run complete", "windows", len(msgs))
	return nil
}
