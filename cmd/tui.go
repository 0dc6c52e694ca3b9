package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/desertthunder/genx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive gallery.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: item store not configured", shared.ErrServiceUnavailable)
	}
	category, err := tasks.ParseCategory(cmd.String("category"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/genx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	prompts, err := r.promptSync()
	if err != nil {
		r.logger.Warn("saved prompts unavailable", "error", err)
	}

	model := ui.NewModel(ctx, ui.Opts{
		Engine:       r.engine,
		Feed:         r.newFeed(category),
		Prompts:      prompts,
		Download:     r.downloadOpts(r.config.Download.OutputDir),
		PrefetchRows: r.config.Feed.PrefetchRows,
		Model:        cmd.String("model"),
		Category:     category,
		Logger:       r.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
