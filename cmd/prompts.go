package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/urfave/cli/v3"
)

type promptView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func toPromptViews(prompts []*models.SavedPrompt) []promptView {
	views := make([]promptView, 0, len(prompts))
	for _, p := range prompts {
		views = append(views, promptView{ID: p.ID(), Text: p.Text(), CreatedAt: p.CreatedAt()})
	}
	return views
}

// PromptsList prints saved prompts after merging with the backend copy.
func (r *Runner) PromptsList(ctx context.Context, cmd *cli.Command) error {
	ps, err := r.promptSync()
	if err != nil {
		return err
	}

	prompts, err := ps.LoadPrompts(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toPromptViews(prompts), cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Saved prompts (%d)", len(prompts)))
	for i, p := range prompts {
		r.writePlain("%3d. %s\n", i+1, shared.Truncate(p.Text(), 100))
	}
	return nil
}

// PromptsAdd saves a prompt locally and pushes it to the backend.
func (r *Runner) PromptsAdd(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("text"))
	if text == "" {
		return fmt.Errorf("%w: prompt text is required", shared.ErrMissingArgument)
	}

	ps, err := r.promptSync()
	if err != nil {
		return err
	}

	p, err := ps.SavePrompt(ctx, text)
	if err != nil {
		return err
	}

	r.logger.Info("prompt saved", "id", p.ID())
	r.writePlain("✓ Saved prompt: %s\n", shared.Truncate(p.Text(), 80))
	return nil
}

// PromptsSync merges saved prompts and, with --session, that session's history with the backend.
func (r *Runner) PromptsSync(ctx context.Context, cmd *cli.Command) error {
	if r.backend == nil {
		return fmt.Errorf("%w: prompt backend not configured", shared.ErrServiceUnavailable)
	}

	ps, err := r.promptSync()
	if err != nil {
		return err
	}

	progress, stop := r.reportProgress("⇅", false)
	prompts, err := ps.LoadPrompts(ctx, progress)
	if err != nil {
		stop()
		return err
	}

	var history []*models.HistoryEntry
	session := strings.TrimSpace(cmd.String("session"))
	if session != "" {
		history, err = ps.LoadHistory(ctx, session, progress)
	}
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("Sync complete")
	r.writePlain("Prompts: %d\n", len(prompts))
	if session != "" {
		r.writePlain("History (%s): %d\n", session, len(history))
	}
	return nil
}
