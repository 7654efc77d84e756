package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestConsolePick(t *testing.T) {
	cands := []string{"alpha", "beta", "2"}
	cases := []struct {
		input, want string
	}{
		{"beta\n", "beta"},
		{"#1\n", "alpha"},
		{"#2\n", "beta"},
		{"2\n", "2"},
		{"1\n", "1"},
		{"brand-new\n", "brand-new"},
		{"  spaced  \n", "spaced"},
		{"9", "9"},
	}
	for _, c := range cases {
		var out bytes.Buffer
		got, err := NewConsole(strings.NewReader(c.input), &out).Pick(context.Background(), "Tag", cands)
		if err != nil {
			t.Errorf("Pick(%q) error: %v", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("Pick(%q) = %q, want %q", c.input, got, c.want)
		}
		if !strings.Contains(out.String(), "  1) alpha") {
			t.Errorf("list not printed: %q", out.String())
		}
	}
}

func TestConsolePick_BadNumber(t *testing.T) {
	for _, input := range []string{"#0\n", "#4\n", "#x\n"} {
		_, err := NewConsole(strings.NewReader(input), &bytes.Buffer{}).Pick(context.Background(), "Tag", []string{"a", "b", "c"})
		if !errors.Is(err, ErrNoChoice) {
			t.Errorf("Pick(%q) err = %v, want ErrNoChoice", input, err)
		}
	}
}

func TestConsolePick_Empty(t *testing.T) {
	for _, input := range []string{"", "\n"} {
		_, err := NewConsole(strings.NewReader(input), &bytes.Buffer{}).Pick(context.Background(), "Tag", nil)
		if !errors.Is(err, ErrNoChoice) {
			t.Errorf("Pick(%q) err = %v, want ErrNoChoice", input, err)
		}
	}
}

func TestConsoleConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"maybe\ny\n", true},
		{"", false},
	}
	for _, c := range cases {
		var out bytes.Buffer
		got, err := NewConsole(strings.NewReader(c.input), &out).Confirm("Create tag «x»?")
		if err != nil {
			t.Errorf("Confirm(%q) error: %v", c.input, err)
		}
		if got != c.want {
			t.Errorf("Confirm(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestFixedRecordsMessages(t *testing.T) {
	f := &Fixed{Answer: true}
	ok, err := f.Confirm("?")
	if err != nil || !ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	f.Notify("Created tag «x»")
	if len(f.Messages) != 1 || f.Messages[0] != "Created tag «x»" {
		t.Errorf("Messages = %v", f.Messages)
	}
}

func typeText(m fuzzyModel, s string) fuzzyModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(fuzzyModel)
}

func press(m fuzzyModel, k tea.KeyMsg) fuzzyModel {
	next, _ := m.Update(k)
	return next.(fuzzyModel)
}

func TestFuzzyModel_FilterAndAccept(t *testing.T) {
	m := newFuzzyModel("Tag", []string{"alpha", "beta", "gamma"})
	if len(m.matches) != 3 {
		t.Fatalf("initial matches = %v", m.matches)
	}
	m = typeText(m, "gam")
	if len(m.matches) != 1 || m.matches[0] != "gamma" {
		t.Fatalf("matches = %v", m.matches)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.choice != "gamma" {
		t.Errorf("choice = %q, want gamma", m.choice)
	}
}

func TestFuzzyModel_NewValue(t *testing.T) {
	m := newFuzzyModel("Tag", []string{"alpha"})
	m = typeText(m, "zzz")
	if len(m.matches) != 0 {
		t.Fatalf("matches = %v", m.matches)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.choice != "zzz" {
		t.Errorf("choice = %q, want zzz", m.choice)
	}
}

func TestFuzzyModel_AltEnterForcesTypedText(t *testing.T) {
	m := newFuzzyModel("Tag", []string{"alpha"})
	m = typeText(m, "al")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	if m.choice != "al" {
		t.Errorf("choice = %q, want al", m.choice)
	}
}

func TestFuzzyModel_CursorAndCancel(t *testing.T) {
	m := newFuzzyModel("Tag", []string{"alpha", "beta"})
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.cancelled {
		t.Error("esc should cancel")
	}
	if !strings.Contains(m.View(), "alpha") {
		t.Error("view should list candidates")
	}
}
