// Package ui implements the interactive duplicates browser: a terminal
// view of every duplicate group where the user picks which copies to
// trash. Deletions go through the same reversible-deletion path as the
// rest of the tool and update the group member statuses in place, so
// the final report reflects what happened in the browser.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/internal/trash"
	"github.com/alibenameur/dupfinder/pkg/utils"
)

// FileDeleter performs one reversible deletion. *cleaner.Cleaner
// satisfies it.
type FileDeleter interface {
	DeleteOne(path string) (trash.Method, *cleaner.DeletionError)
}

// memberRef addresses one file inside the group slice.
type memberRef struct {
	group  int
	member int
}

type fileResult struct {
	ref    memberRef
	path   string
	size   int64
	method trash.Method
	err    *cleaner.DeletionError
}

type deletionCompleteMsg struct {
	results []fileResult
}

// keyMap declares the browser bindings; help renders from it.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PrevGroup key.Binding
	NextGroup key.Binding
	Toggle    key.Binding
	SelectAll key.Binding
	Clear     key.Binding
	Delete    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevGroup, k.NextGroup},
		{k.Toggle, k.SelectAll, k.Clear},
		{k.Delete, k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous file"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next file"),
	),
	PrevGroup: key.NewBinding(
		key.WithKeys("left", "p"),
		key.WithHelp("←/p", "previous group"),
	),
	NextGroup: key.NewBinding(
		key.WithKeys("right", "n"),
		key.WithHelp("→/n", "next group"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle selection"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all but first"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear selections"),
	),
	Delete: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "trash selected"),
	),
	Help: key.NewBinding(
		key.WithKeys("h", "?"),
		key.WithHelp("h", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// BrowserModel drives the duplicates browser. It owns the group slice
// for the duration of the program and mutates member statuses as files
// are deleted.
type BrowserModel struct {
	groups   []duplicates.Group
	selected [][]bool
	deleter  FileDeleter

	currentGroup int
	currentFile  int

	width  int
	height int

	keys keyMap
	help help.Model

	confirming bool
	pending    []memberRef
	lastError  string

	stats    cleaner.Stats
	failures []*cleaner.DeletionError

	quitting bool
}

// NewBrowserModel creates the browser over already-grouped duplicates.
// Group order is preserved.
func NewBrowserModel(groups []duplicates.Group, deleter FileDeleter) BrowserModel {
	selected := make([][]bool, len(groups))
	for i := range groups {
		selected[i] = make([]bool, len(groups[i].Members))
	}
	helpModel := help.New()
	helpModel.ShowAll = true
	return BrowserModel{
		groups:   groups,
		selected: selected,
		deleter:  deleter,
		keys:     defaultKeys,
		help:     helpModel,
	}
}

// Stats reports what the browser session deleted.
func (m BrowserModel) Stats() cleaner.Stats {
	return m.stats
}

// Failures reports the deletions that did not succeed.
func (m BrowserModel) Failures() []*cleaner.DeletionError {
	return m.failures
}

// Init implements tea.Model.
func (m BrowserModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirming {
			return m.handleConfirmKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case deletionCompleteMsg:
		m.applyResults(msg.results)
	}

	return m, nil
}

func (m BrowserModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.groups) == 0 {
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.currentFile > 0 {
			m.currentFile--
		}

	case key.Matches(msg, m.keys.Down):
		if m.currentFile < len(m.groups[m.currentGroup].Members)-1 {
			m.currentFile++
		}

	case key.Matches(msg, m.keys.PrevGroup):
		if m.currentGroup > 0 {
			m.currentGroup--
			m.currentFile = 0
		}

	case key.Matches(msg, m.keys.NextGroup):
		if m.currentGroup < len(m.groups)-1 {
			m.currentGroup++
			m.currentFile = 0
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.selectable(m.currentGroup, m.currentFile) {
			m.selected[m.currentGroup][m.currentFile] = !m.selected[m.currentGroup][m.currentFile]
		}

	case key.Matches(msg, m.keys.SelectAll):
		// Select every copy after the first still-present member, so at
		// least one file per group always survives.
		first := true
		for i := range m.groups[m.currentGroup].Members {
			if !m.selectable(m.currentGroup, i) {
				continue
			}
			if first {
				m.selected[m.currentGroup][i] = false
				first = false
				continue
			}
			m.selected[m.currentGroup][i] = true
		}

	case key.Matches(msg, m.keys.Clear):
		for i := range m.selected[m.currentGroup] {
			m.selected[m.currentGroup][i] = false
		}

	case key.Matches(msg, m.keys.Delete):
		return m.stageDeletion()
	}

	return m, nil
}

func (m BrowserModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		return m, m.deleteCmd(m.pending)

	case "n", "N", "esc", "ctrl+c":
		// Anything but an explicit yes cancels.
		m.confirming = false
		m.pending = nil
	}
	return m, nil
}

// selectable reports whether the member can still be marked for
// deletion.
func (m BrowserModel) selectable(group, member int) bool {
	return m.groups[group].Members[member].Status != duplicates.StatusDeleted
}

func (m BrowserModel) stageDeletion() (tea.Model, tea.Cmd) {
	var pending []memberRef
	for g := range m.selected {
		for f, on := range m.selected[g] {
			if on && m.selectable(g, f) {
				pending = append(pending, memberRef{group: g, member: f})
			}
		}
	}
	if len(pending) == 0 {
		return m, nil
	}

	m.pending = pending
	m.confirming = true
	return m, nil
}

// deleteCmd trashes the staged files off the update loop. Failures are
// collected, not fatal.
func (m BrowserModel) deleteCmd(refs []memberRef) tea.Cmd {
	deleter := m.deleter
	type target struct {
		ref  memberRef
		path string
		size int64
	}
	targets := make([]target, len(refs))
	for i, ref := range refs {
		member := m.groups[ref.group].Members[ref.member]
		targets[i] = target{ref: ref, path: member.Path, size: member.Size}
	}

	return func() tea.Msg {
		results := make([]fileResult, 0, len(targets))
		for _, tgt := range targets {
			method, err := deleter.DeleteOne(tgt.path)
			results = append(results, fileResult{
				ref:    tgt.ref,
				path:   tgt.path,
				size:   tgt.size,
				method: method,
				err:    err,
			})
		}
		return deletionCompleteMsg{results: results}
	}
}

func (m *BrowserModel) applyResults(results []fileResult) {
	m.lastError = ""
	for _, res := range results {
		m.selected[res.ref.group][res.ref.member] = false
		if res.err != nil {
			m.failures = append(m.failures, res.err)
			m.lastError = res.err.UserMessage()
			continue
		}
		m.groups[res.ref.group].Members[res.ref.member].Status = duplicates.StatusDeleted
		m.stats.FilesDeleted++
		m.stats.BytesFreed += res.size
	}
	m.pending = nil
}

// View implements tea.Model.
func (m BrowserModel) View() string {
	if m.quitting {
		return ""
	}
	if len(m.groups) == 0 {
		return SuccessStyle.MarginTop(2).MarginLeft(2).
			Render("No duplicate files to review.\n\nPress 'q' to quit.")
	}
	if m.confirming {
		return m.viewConfirm()
	}
	return m.viewMain()
}

func (m BrowserModel) viewConfirm() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Confirm deletion"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Move %d file(s) to trash?\n\n", len(m.pending))
	for _, ref := range m.pending {
		fmt.Fprintf(&b, "  - %s\n", m.groups[ref.group].Members[ref.member].Path)
	}
	b.WriteString("\n")
	b.WriteString("Press 'y' to confirm, 'n' to cancel")
	return b.String()
}

func (m BrowserModel) viewMain() string {
	var b strings.Builder

	header := fmt.Sprintf("dupfinder - duplicate browser (group %d of %d)",
		m.currentGroup+1, len(m.groups))
	b.WriteString(HeaderStyle.Render(header))
	b.WriteString("\n\n")

	group := &m.groups[m.currentGroup]
	info := fmt.Sprintf("Hash: %s...  %d files, %s each",
		group.ShortFingerprint(), len(group.Members), utils.FormatBytes(group.Size()))
	b.WriteString(InfoStyle.Render(info))
	b.WriteString("\n\n")

	b.WriteString(m.viewMembers(group))

	if m.stats.FilesDeleted > 0 {
		fmt.Fprintf(&b, "\nDeleted %d file(s), %s freed\n",
			m.stats.FilesDeleted, utils.FormatBytes(m.stats.BytesFreed))
	}
	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.lastError))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m BrowserModel) viewMembers(group *duplicates.Group) string {
	var b strings.Builder

	for i, member := range group.Members {
		var line strings.Builder

		switch {
		case member.Status == duplicates.StatusDeleted:
			line.WriteString("    ")
		case m.selected[m.currentGroup][i]:
			line.WriteString("[x] ")
		default:
			line.WriteString("[ ] ")
		}

		style := lipgloss.NewStyle()
		switch {
		case member.Status == duplicates.StatusDeleted:
			style = DeletedStyle
		case m.selected[m.currentGroup][i]:
			style = SuccessStyle
		}
		if i == m.currentFile {
			style = style.Reverse(true)
		}
		line.WriteString(style.Render(member.Path))

		if member.Status == duplicates.StatusDeleted {
			line.WriteString(" ")
			line.WriteString(ErrorStyle.Render("[deleted]"))
		} else if i == firstPresent(group) {
			line.WriteString(" ")
			line.WriteString(KeptStyle.Render("[kept by auto-clean]"))
		}

		b.WriteString(line.String())
		b.WriteString("\n")
	}
	return b.String()
}

// firstPresent is the member auto-clean would keep: the first one not
// already deleted.
func firstPresent(group *duplicates.Group) int {
	for i, member := range group.Members {
		if member.Status != duplicates.StatusDeleted {
			return i
		}
	}
	return -1
}

// Run starts the browser and blocks until the user quits. It returns
// the final model so callers can read deletion stats and failures.
func Run(groups []duplicates.Group, deleter FileDeleter) (BrowserModel, error) {
	program := tea.NewProgram(NewBrowserModel(groups, deleter), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return BrowserModel{}, fmt.Errorf("interactive browser failed: %w", err)
	}
	model, ok := final.(BrowserModel)
	if !ok {
		return BrowserModel{}, fmt.Errorf("interactive browser returned unexpected model")
	}
	return model, nil
}
