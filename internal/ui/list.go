package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
)

var (
	_ list.Item         = entryItem{}
	_ list.ItemDelegate = entryDelegate{}
)

// entryItem wraps [tasks.Entry] to implement [list.Item].
type entryItem struct {
	entry tasks.Entry
}

func (i entryItem) FilterValue() string { return i.entry.Label() }
func (i entryItem) Title() string       { return i.entry.Label() }
func (i entryItem) Description() string {
	if job := i.entry.Job; job != nil {
		desc := fmt.Sprintf("%s • %s", job.Status, job.MediaKind())
		if job.Model != "" {
			desc = fmt.Sprintf("%s • %s", desc, job.Model)
		}
		return desc
	}

	item := i.entry.Item
	desc := string(item.MediaKind())
	if item.Model != "" {
		desc = fmt.Sprintf("%s • %s", desc, item.Model)
	}
	if item.IsLiked {
		desc += " • ♥"
	}
	return fmt.Sprintf("%s • %s", desc, shared.VisibilityString(item.IsPublic))
}

// entryDelegate renders entries with a selection marker and, for placeholders, a progress
// bar or a spinner while the job is still preparing.
type entryDelegate struct {
	selection *Selection
	spinner   *spinner.Model
	bar       *progress.Model
}

func (d entryDelegate) Height() int                               { return 2 }
func (d entryDelegate) Spacing() int                              { return 1 }
func (d entryDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d entryDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	item, ok := li.(entryItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = styles.selected.Render("▸ ")
	}

	mark, indent := "", "  "
	if d.selection.BulkMode() {
		mark, indent = "[ ] ", "      "
		if d.selection.Contains(item.entry.Identity) {
			mark = styles.ok.Render("[x] ")
		}
	}

	title := shared.Truncate(item.Title(), max(m.Width()-12, 16))
	if index == m.Index() {
		title = styles.selected.Render(title)
	}

	var detail string
	switch {
	case !item.entry.Placeholder():
		detail = styles.help.Render(item.Description())
	case item.entry.Indeterminate:
		detail = fmt.Sprintf("%s %s", d.spinner.View(), styles.help.Render("preparing • "+item.Description()))
	default:
		detail = fmt.Sprintf("%s %s", d.bar.ViewAs(item.entry.Progress/100), styles.help.Render(item.Description()))
	}

	fmt.Fprintf(w, "%s%s%s\n%s%s", cursor, mark, title, indent, detail)
}
