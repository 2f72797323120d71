package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/duplicates"
	"github.com/alibenameur/dupfinder/internal/scanner"
	"github.com/alibenameur/dupfinder/internal/trash"
)

type fakeDeleter struct {
	deleted []string
	fail    map[string]bool
}

func (d *fakeDeleter) DeleteOne(path string) (trash.Method, *cleaner.DeletionError) {
	if d.fail[path] {
		return trash.MethodNone, &cleaner.DeletionError{Path: path, Reason: cleaner.ErrorPermissionDenied}
	}
	d.deleted = append(d.deleted, path)
	return trash.MethodTrash, nil
}

func sampleGroups() []duplicates.Group {
	return []duplicates.Group{
		{
			Fingerprint: "aaaa1111bbbb2222cccc3333",
			Members: []duplicates.Member{
				{FileRecord: scanner.FileRecord{Path: "/data/a.txt", Size: 100}},
				{FileRecord: scanner.FileRecord{Path: "/data/b.txt", Size: 100}},
				{FileRecord: scanner.FileRecord{Path: "/data/c.txt", Size: 100}},
			},
		},
		{
			Fingerprint: "ffff0000eeee9999dddd8888",
			Members: []duplicates.Member{
				{FileRecord: scanner.FileRecord{Path: "/music/x.mp3", Size: 50}},
				{FileRecord: scanner.FileRecord{Path: "/music/y.mp3", Size: 50}},
			},
		},
	}
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m BrowserModel, msg tea.Msg) (BrowserModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(BrowserModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func TestNewBrowserModel(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	if len(m.groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(m.groups))
	}
	if m.currentGroup != 0 || m.currentFile != 0 {
		t.Errorf("cursor = (%d, %d), want origin", m.currentGroup, m.currentFile)
	}
	if len(m.selected[0]) != 3 || len(m.selected[1]) != 2 {
		t.Errorf("selection shape mismatch: %v", m.selected)
	}
}

func TestNavigation(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	m, _ = step(t, m, keyMsg("j"))
	m, _ = step(t, m, keyMsg("j"))
	if m.currentFile != 2 {
		t.Errorf("currentFile = %d, want 2", m.currentFile)
	}
	m, _ = step(t, m, keyMsg("j")) // bottom, must not overrun
	if m.currentFile != 2 {
		t.Errorf("currentFile overran to %d", m.currentFile)
	}

	m, _ = step(t, m, keyMsg("n"))
	if m.currentGroup != 1 || m.currentFile != 0 {
		t.Errorf("group switch: (%d, %d)", m.currentGroup, m.currentFile)
	}
	m, _ = step(t, m, keyMsg("p"))
	if m.currentGroup != 0 {
		t.Errorf("currentGroup = %d after p", m.currentGroup)
	}
}

func TestSelectionToggle(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	m, _ = step(t, m, keyMsg("j"))
	m, _ = step(t, m, keyMsg(" "))
	if !m.selected[0][1] {
		t.Error("space did not select")
	}
	m, _ = step(t, m, keyMsg(" "))
	if m.selected[0][1] {
		t.Error("space did not toggle off")
	}
}

func TestSelectAllSparesFirstFile(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	m, _ = step(t, m, keyMsg("a"))
	if m.selected[0][0] {
		t.Error("'a' must never select the surviving copy")
	}
	if !m.selected[0][1] || !m.selected[0][2] {
		t.Error("'a' should select the remaining copies")
	}

	m, _ = step(t, m, keyMsg("c"))
	for i, on := range m.selected[0] {
		if on {
			t.Errorf("selection %d survived clear", i)
		}
	}
}

func TestDeletionNeedsConfirmation(t *testing.T) {
	deleter := &fakeDeleter{}
	m := NewBrowserModel(sampleGroups(), deleter)

	m, _ = step(t, m, keyMsg("j"))
	m, _ = step(t, m, keyMsg(" "))
	m, _ = step(t, m, keyMsg("enter"))
	if !m.confirming {
		t.Fatal("enter should stage a confirmation")
	}

	// Declining leaves everything untouched.
	m, _ = step(t, m, keyMsg("n"))
	if m.confirming || m.pending != nil {
		t.Error("decline did not reset confirmation state")
	}
	if len(deleter.deleted) != 0 {
		t.Errorf("declined run deleted %v", deleter.deleted)
	}
}

func TestConfirmedDeletionUpdatesStatuses(t *testing.T) {
	deleter := &fakeDeleter{}
	groups := sampleGroups()
	m := NewBrowserModel(groups, deleter)

	m, _ = step(t, m, keyMsg("j"))
	m, _ = step(t, m, keyMsg(" "))
	m, _ = step(t, m, keyMsg("enter"))
	m, cmd := step(t, m, keyMsg("y"))
	if cmd == nil {
		t.Fatal("confirmation should produce a deletion command")
	}

	m, _ = step(t, m, cmd())

	if len(deleter.deleted) != 1 || deleter.deleted[0] != "/data/b.txt" {
		t.Errorf("deleted = %v", deleter.deleted)
	}
	if groups[0].Members[1].Status != duplicates.StatusDeleted {
		t.Error("member status not updated in place")
	}
	if stats := m.Stats(); stats.FilesDeleted != 1 || stats.BytesFreed != 100 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestEnterWithoutSelectionIsNoop(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	m, _ = step(t, m, keyMsg("enter"))
	if m.confirming {
		t.Error("nothing selected, nothing to confirm")
	}
}

func TestDeletionFailureIsRecorded(t *testing.T) {
	deleter := &fakeDeleter{fail: map[string]bool{"/data/b.txt": true}}
	groups := sampleGroups()
	m := NewBrowserModel(groups, deleter)

	m, _ = step(t, m, keyMsg("j"))
	m, _ = step(t, m, keyMsg(" "))
	m, _ = step(t, m, keyMsg("enter"))
	m, cmd := step(t, m, keyMsg("y"))
	m, _ = step(t, m, cmd())

	if len(m.Failures()) != 1 {
		t.Fatalf("failures = %d, want 1", len(m.Failures()))
	}
	if groups[0].Members[1].Status == duplicates.StatusDeleted {
		t.Error("failed deletion must not mark the member deleted")
	}
	if m.Stats().FilesDeleted != 0 {
		t.Errorf("stats counted a failed deletion: %+v", m.Stats())
	}
}

func TestQuit(t *testing.T) {
	m := NewBrowserModel(sampleGroups(), &fakeDeleter{})

	m, cmd := step(t, m, keyMsg("q"))
	if !m.quitting {
		t.Error("q did not quit")
	}
	if cmd == nil {
		t.Error("quit should return tea.Quit")
	}
}

func TestViewRendersStatuses(t *testing.T) {
	groups := sampleGroups()
	groups[0].Members[1].Status = duplicates.StatusDeleted
	m := NewBrowserModel(groups, &fakeDeleter{})

	view := m.View()
	if view == "" {
		t.Fatal("empty view")
	}
	for _, want := range []string{"/data/a.txt", "[deleted]", "[kept by auto-clean]", "group 1 of 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
