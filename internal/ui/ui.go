package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/formatter"
	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/google/uuid"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	GalleryView ViewState = iota
	ComposeView
)

var categories = []tasks.Category{
	tasks.CategoryAll,
	tasks.CategoryImages,
	tasks.CategoryVideos,
	tasks.CategoryLiked,
	tasks.CategoryPublic,
}

// Opts wires the gallery to the engine and its collaborators.
type Opts struct {
	Engine       *tasks.Engine
	Feed         *tasks.Feed
	Prompts      *tasks.PromptSync // optional
	Download     tasks.BulkDownloadOpts
	ExportDir    string // default "."
	PrefetchRows int    // rows from the end at which the next page loads, default 5
	Model        string // generation model for new jobs
	Category     tasks.Category
	Logger       *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.Engine
	feed         *tasks.Feed
	prompts      *tasks.PromptSync
	download     tasks.BulkDownloadOpts
	exportDir    string
	prefetch     int
	genModel     string
	session      string
	logger       *log.Logger
	filter       tasks.Filter
	entries      []tasks.Entry
	failed       []models.Job
	list         list.Model
	spinner      spinner.Model
	bar          progress.Model
	input        textinput.Model
	source       *models.Item // item being re-edited in ComposeView
	selection    *Selection
	drag         *DragChannel
	progressChan chan tasks.ProgressUpdate
	polling      bool
	status       string
	err          error
	help         help.Model
	keys         keyMap
	width        int
	height       int

	copyText func(string) error
	openURL  func(string) error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Opts) *Model {
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.PrefetchRows <= 0 {
		opts.PrefetchRows = 5
	}
	if opts.Category == "" {
		opts.Category = tasks.CategoryAll
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}

	m := &Model{
		ctx:          ctx,
		view:         GalleryView,
		engine:       opts.Engine,
		feed:         opts.Feed,
		prompts:      opts.Prompts,
		download:     opts.Download,
		exportDir:    opts.ExportDir,
		prefetch:     opts.PrefetchRows,
		genModel:     opts.Model,
		session:      uuid.NewString(),
		logger:       shared.WithLogger(opts.Logger, "component", "ui"),
		filter:       tasks.Filter{Category: opts.Category},
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		input:        textinput.New(),
		selection:    NewSelection(),
		drag:         NewDragChannel(),
		progressChan: make(chan tasks.ProgressUpdate, 50),
		help:         help.New(),
		keys:         newKeyMap(),
		copyText:     clipboard.WriteAll,
		openURL:      shared.OpenBrowser,
	}

	m.input.Placeholder = "Describe what to generate"
	m.input.CharLimit = 2000
	m.input.ShowSuggestions = true

	m.list = list.New(nil, entryDelegate{selection: m.selection, spinner: &m.spinner, bar: &m.bar}, 0, 0)
	m.list.Title = "Gallery"
	m.list.SetShowHelp(false)
	m.list.SetFilteringEnabled(false)
	m.list.KeyMap.GoToStart = key.NewBinding(key.WithKeys("home"))
	m.list.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup"))
	m.list.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown"))

	return m
}

// Init starts the first page load, the poll loop and the progress listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.refresh(),
		m.schedulePoll(),
		m.waitForProgress(),
		m.loadPrompts(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-10)
		m.bar.Width = min(30, max(msg.Width/3, 10))
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 6
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.view == GalleryView {
			return m, m.handleMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ComposeView:
			return m.handleComposeKeys(msg)
		default:
			return m.handleGalleryKeys(msg)
		}

	case Msg:
		return m, m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	switch msg.kind {
	case MsgPageFetched:
		data := msg.data.(pageFetched)
		if !m.feed.Complete(data.req, data.page, data.err) {
			return nil
		}
		if data.err != nil {
			m.err = fmt.Errorf("failed to load items: %w", data.err)
			return nil
		}
		m.err = nil
		m.engine.Reconcile(m.feed.Items())
		m.rebuild()
		return m.checkSentinel()

	case MsgPollTick:
		cmds := []tea.Cmd{m.schedulePoll()}
		if failed, removed := m.engine.Sweep(m.progressChan); len(failed)+len(removed) > 0 {
			m.rebuild()
		}
		if !m.polling && len(m.engine.Registry().Active()) > 0 {
			m.polling = true
			cmds = append(cmds, m.poll())
		}
		return tea.Batch(cmds...)

	case MsgPolled:
		data := msg.data.(polled)
		m.polling = false
		m.rebuild()
		if data.finished > 0 {
			return m.refresh()
		}
		return nil

	case MsgJobStarted:
		m.rebuild()
		return nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if update.Message != "" {
			m.status = update.Message
		}
		return m.waitForProgress()

	case MsgActionDone:
		data := msg.data.(actionDone)
		m.err = data.err
		if data.status != "" {
			m.status = data.status
		}
		return nil

	case MsgPromptsLoaded:
		m.input.SetSuggestions(msg.data.([]string))
		return nil
	}
	return nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ComposeView:
		return m.renderCompose()
	default:
		return m.renderGallery()
	}
}

func (m *Model) handleGalleryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.compose):
		return m, m.startCompose(nil)

	case key.Matches(msg, m.keys.edit):
		if item := m.currentItem(); item != nil {
			return m, m.startCompose(item)
		}
		return m, nil

	case key.Matches(msg, m.keys.video):
		item := m.currentItem()
		if item == nil {
			return m, nil
		}
		_, req := m.engine.PrepareDerive(*item, tasks.DeriveRequest{Op: tasks.OpVideo})
		m.rebuild()
		return m, m.start(req)

	case key.Matches(msg, m.keys.discard):
		if entry := m.current(); entry != nil && entry.Placeholder() {
			m.engine.Discard(entry.Job.ID)
			m.rebuild()
		}
		return m, nil

	case key.Matches(msg, m.keys.clear):
		for _, job := range m.failed {
			m.engine.Discard(job.ID)
		}
		m.rebuild()
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		if !m.selection.BulkMode() {
			m.selection.SetBulkMode(true)
		}
		m.selection.ToggleAt(m.list.Index(), m.identities())
		return m, nil

	case key.Matches(msg, m.keys.extend):
		if !m.selection.BulkMode() {
			m.selection.SetBulkMode(true)
		}
		if s := msg.String(); s == "shift+up" || s == "K" {
			m.list.CursorUp()
		} else {
			m.list.CursorDown()
		}
		m.selection.ExtendTo(m.list.Index(), m.identities())
		return m, m.checkSentinel()

	case key.Matches(msg, m.keys.bulk):
		m.selection.SetBulkMode(!m.selection.BulkMode())
		return m, nil

	case key.Matches(msg, m.keys.back):
		m.selection.SetBulkMode(false)
		return m, nil

	case key.Matches(msg, m.keys.export):
		return m, m.exportTargets()

	case key.Matches(msg, m.keys.download):
		return m, m.downloadTargets()

	case key.Matches(msg, m.keys.copy):
		return m, m.copyTargets()

	case key.Matches(msg, m.keys.open):
		if entry := m.current(); entry != nil && entry.URL() != "" {
			if err := m.openURL(entry.URL()); err != nil {
				m.err = err
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.category):
		return m, m.nextCategory()

	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, tea.Batch(cmd, m.checkSentinel())
}

func (m *Model) handleComposeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.back):
		m.endCompose()
		return m, nil

	case key.Matches(msg, m.keys.submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.status = "Prompt is empty"
			return m, nil
		}

		var req services.GenerationRequest
		if m.source != nil {
			_, req = m.engine.PrepareDerive(*m.source, tasks.DeriveRequest{Op: tasks.OpEdit, Prompt: text})
		} else {
			_, req = m.engine.Enqueue(services.GenerationRequest{Prompt: text, Model: m.genModel})
		}
		m.endCompose()
		m.rebuild()
		m.list.Select(0)
		return m, tea.Batch(m.start(req), m.savePrompt(text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleMouse scrolls with the wheel and drags the highlighted entry with the left button.
// Releasing the button drops the payload onto the system clipboard.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.list.CursorUp()
		return nil

	case msg.Button == tea.MouseButtonWheelDown:
		m.list.CursorDown()
		return m.checkSentinel()

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if entry := m.current(); entry != nil {
			if _, ok := m.drag.Begin(entry.URL()); ok {
				m.drag.Move(msg.X, msg.Y)
			}
		}
		return nil

	case msg.Action == tea.MouseActionMotion:
		m.drag.Move(msg.X, msg.Y)
		return nil

	case msg.Action == tea.MouseActionRelease:
		payload, ok := m.drag.End()
		if !ok {
			return nil
		}
		if err := m.copyText(payload); err != nil {
			m.err = fmt.Errorf("failed to copy to clipboard: %w", err)
			return nil
		}
		m.status = "Dropped " + shared.Truncate(payload, 60) + " onto the clipboard"
	}
	return nil
}

// rebuild recomputes the merged sequence and keeps the cursor on the same identity.
func (m *Model) rebuild() {
	var focused string
	if entry := m.current(); entry != nil {
		focused = entry.Identity
	}

	snapshot := m.engine.Registry().Snapshot()
	m.entries = tasks.Merge(snapshot, m.feed.Items(), m.filter)
	m.failed = tasks.FailedJobs(snapshot)

	items := make([]list.Item, len(m.entries))
	for i, e := range m.entries {
		items[i] = entryItem{entry: e}
	}
	m.list.SetItems(items)

	if focused != "" {
		if i := slices.IndexFunc(m.entries, func(e tasks.Entry) bool { return e.Identity == focused }); i >= 0 {
			m.list.Select(i)
			return
		}
	}
	if n := len(m.entries); n > 0 && m.list.Index() >= n {
		m.list.Select(n - 1)
	}
}

// checkSentinel loads the next page once the cursor is within prefetch rows of the end.
func (m *Model) checkSentinel() tea.Cmd {
	if len(m.entries)-m.list.Index() > m.prefetch {
		return nil
	}
	req, ok := m.feed.TryBegin()
	if !ok {
		return nil
	}
	return m.fetch(req)
}

func (m *Model) refresh() tea.Cmd {
	return m.fetch(m.feed.BeginRefresh())
}

func (m *Model) fetch(req tasks.PageRequest) tea.Cmd {
	return func() tea.Msg {
		page, err := m.feed.Fetch(m.ctx, req)
		return pageFetchedMsg(req, page, err)
	}
}

func (m *Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.engine.PollInterval(), func(time.Time) tea.Msg {
		return pollTickMsg()
	})
}

// poll runs one poll round and counts the jobs that stopped being active during it.
// Jobs enqueued while the round is in flight do not offset the count.
func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		before := m.engine.Registry().Active()
		_, err := m.engine.Poll(m.ctx, m.progressChan)

		after := m.engine.Registry().Active()
		finished := 0
		for _, id := range before {
			if !slices.Contains(after, id) {
				finished++
			}
		}
		return polledMsg(finished, err)
	}
}

func (m *Model) start(req services.GenerationRequest) tea.Cmd {
	return func() tea.Msg {
		m.engine.Start(m.ctx, req, m.progressChan)
		return jobStartedMsg()
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.progressChan:
			return progressUpdateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) loadPrompts() tea.Cmd {
	if m.prompts == nil {
		return nil
	}
	return func() tea.Msg {
		prompts, err := m.prompts.LoadPrompts(m.ctx, m.progressChan)
		if err != nil {
			m.logger.Warn("failed to load saved prompts", "error", err)
			return nil
		}
		texts := make([]string, len(prompts))
		for i, p := range prompts {
			texts[i] = p.Text()
		}
		return promptsLoadedMsg(texts)
	}
}

func (m *Model) savePrompt(text string) tea.Cmd {
	if m.prompts == nil {
		return nil
	}
	return func() tea.Msg {
		if _, err := m.prompts.SavePrompt(m.ctx, text); err != nil {
			m.logger.Warn("failed to save prompt", "error", err)
		}
		if _, err := m.prompts.AppendHistory(m.ctx, m.session, models.RoleUser, text, ""); err != nil {
			m.logger.Warn("failed to record history", "error", err)
		}
		return nil
	}
}

func (m *Model) startCompose(source *models.Item) tea.Cmd {
	m.view = ComposeView
	m.source = source
	m.input.Reset()
	m.input.Placeholder = "Describe what to generate"
	if source != nil {
		m.input.Placeholder = "Describe the edit (blank keeps the original prompt)"
		m.input.SetValue(source.Prompt)
	}
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) endCompose() {
	m.view = GalleryView
	m.source = nil
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) nextCategory() tea.Cmd {
	i := slices.Index(categories, m.filter.Category)
	next := categories[(i+1)%len(categories)]
	m.filter.Category = next

	hint := string(next)
	if next == tasks.CategoryAll {
		hint = ""
	}
	m.feed.SetCategory(hint)
	m.rebuild()
	return m.refresh()
}

// targets returns the selected items, or the highlighted one outside a selection.
func (m *Model) targets() []models.Item {
	if m.selection.Len() == 0 {
		if item := m.currentItem(); item != nil {
			return []models.Item{*item}
		}
		return nil
	}

	var items []models.Item
	for _, e := range m.entries {
		if e.Item != nil && m.selection.Contains(e.Identity) {
			items = append(items, *e.Item)
		}
	}
	return items
}

func (m *Model) exportTargets() tea.Cmd {
	items := m.targets()
	if len(items) == 0 {
		m.status = "Nothing to export"
		return nil
	}
	path := filepath.Join(m.exportDir, fmt.Sprintf("genx_export_%d.json", time.Now().Unix()))
	return func() tea.Msg {
		written, err := formatter.WriteExport(items, formatter.FormatJSON, path)
		if err != nil {
			m.logger.Error("export failed", "error", err)
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Exported %d items to %s", len(items), written), nil)
	}
}

func (m *Model) downloadTargets() tea.Cmd {
	items := m.targets()
	if len(items) == 0 {
		m.status = "Nothing to download"
		return nil
	}
	opts := m.download
	return func() tea.Msg {
		result, err := tasks.BulkDownload(m.ctx, m.progressChan, items, opts)
		if err != nil {
			m.logger.Error("download failed", "error", err)
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("Downloaded %d/%d items to %s", result.Downloaded, result.TotalItems, result.OutputDirectory), nil)
	}
}

func (m *Model) copyTargets() tea.Cmd {
	var urls []string
	for _, item := range m.targets() {
		if item.URL != "" {
			urls = append(urls, item.URL)
		}
	}
	if len(urls) == 0 {
		m.status = "Nothing to copy"
		return nil
	}
	if err := m.copyText(strings.Join(urls, "\n")); err != nil {
		m.err = fmt.Errorf("failed to copy to clipboard: %w", err)
		return nil
	}
	m.status = fmt.Sprintf("Copied %d urls", len(urls))
	return nil
}

func (m *Model) identities() []string {
	return tasks.Identities(m.entries)
}

func (m *Model) current() *tasks.Entry {
	i := m.list.Index()
	if i < 0 || i >= len(m.entries) {
		return nil
	}
	return &m.entries[i]
}

func (m *Model) currentItem() *models.Item {
	if entry := m.current(); entry != nil && entry.Item != nil {
		item := *entry.Item
		return &item
	}
	return nil
}

func (m *Model) renderGallery() string {
	var b strings.Builder

	tabs := make([]string, len(categories))
	for i, c := range categories {
		if c == m.filter.Category {
			tabs[i] = styles.tabOn.Render(string(c))
		} else {
			tabs[i] = styles.tab.Render(string(c))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	for _, job := range m.failed {
		msg := job.Error
		if msg == "" {
			msg = "generation failed"
		}
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ %s: %s", shared.Truncate(job.Prompt, 40), msg)))
		b.WriteString(styles.help.Render("  (x/X to dismiss)"))
		b.WriteString("\n")
	}

	if m.selection.BulkMode() {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Bulk mode: %d selected", m.selection.Len())))
		b.WriteString("\n")
	}

	b.WriteString(m.list.View())
	b.WriteString("\n")

	if p, ok := m.drag.Preview(); ok {
		b.WriteString(styles.preview.Render(fmt.Sprintf("⇢ %s (%d,%d)", shared.Truncate(p.URL, 48), p.X, p.Y)))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(m.err.Error()))
	case m.feed.InFlight():
		b.WriteString(m.spinner.View() + " loading…")
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderCompose() string {
	title := "New generation"
	if m.source != nil {
		title = "Re-edit " + shared.Truncate(m.source.Identity(), 32)
	}

	helpKeys := []key.Binding{m.keys.submit, m.keys.back}
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), m.input.View(), m.help.ShortHelpView(helpKeys))
}
