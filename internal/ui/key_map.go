package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	compose  key.Binding
	edit     key.Binding
	video    key.Binding
	discard  key.Binding
	clear    key.Binding
	toggle   key.Binding
	extend   key.Binding
	bulk     key.Binding
	export   key.Binding
	download key.Binding
	copy     key.Binding
	open     key.Binding
	category key.Binding
	refresh  key.Binding
	submit   key.Binding
	back     key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		compose:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "re-edit")),
		video:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "to video")),
		discard:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "discard job")),
		clear:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "dismiss failures")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		extend:   key.NewBinding(key.WithKeys("shift+down", "shift+up", "J", "K"), key.WithHelp("J/K", "select range")),
		bulk:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bulk mode")),
		export:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export")),
		download: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "download")),
		copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		category: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "category")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.compose, k.toggle, k.bulk, k.category, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.category, k.refresh, k.open},
		{k.compose, k.edit, k.video, k.discard, k.clear},
		{k.toggle, k.extend, k.bulk, k.back},
		{k.export, k.download, k.copy},
		{k.help, k.quit},
	}
}
