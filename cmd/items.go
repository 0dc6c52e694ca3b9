package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ItemsList prints persisted items matching the selection flags.
func (r *Runner) ItemsList(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	items, err := r.collectItems(ctx, cmd)
	if err != nil {
		return err
	}

	if useJSON {
		if items == nil {
			items = []models.Item{}
		}
		return r.writeJSON(items, pretty)
	}

	r.writePlainHeader(fmt.Sprintf("Items (%d)", len(items)))
	for i, item := range items {
		liked := " "
		if item.IsLiked {
			liked = "♥"
		}
		r.writePlain("%3d. %s %-28s %-5s %-18s %s\n",
			i+1,
			liked,
			shared.Truncate(item.Identity(), 28),
			item.MediaKind(),
			shared.Truncate(item.Model, 18),
			shared.Truncate(item.Prompt, 50),
		)
	}
	return nil
}

// collectItems pages through the item store until --limit items pass the category and
// identity filters or the store runs out of pages.
func (r *Runner) collectItems(ctx context.Context, cmd *cli.Command) ([]models.Item, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: item store not configured", shared.ErrServiceUnavailable)
	}

	category, err := tasks.ParseCategory(cmd.String("category"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	limit := cmd.Int("limit")
	if limit <= 0 {
		return nil, fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidFlag)
	}

	filter := tasks.Filter{Category: category, Allow: cmd.StringSlice("id")}
	feed := r.newFeed(category)

	var items []models.Item
	for {
		fetched, err := feed.LoadMore(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load items: %w", err)
		}
		items = tasks.Items(tasks.Merge(nil, feed.Items(), filter))
		if !fetched || len(items) >= limit || !feed.HasMore() {
			break
		}
	}

	if len(items) > limit {
		items = items[:limit]
	}
	r.logger.Debug("collected items", "count", len(items), "category", category)
	return items, nil
}
