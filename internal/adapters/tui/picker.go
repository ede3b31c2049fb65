package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/xvierd/branchbar/internal/adapters/storage"
	"github.com/xvierd/branchbar/internal/domain"
)

// maxPickerRows bounds the recent repositories listed under the input.
const maxPickerRows = 8

// pickerOutcome reports what a key press did to the picker.
type pickerOutcome int

const (
	pickerOpen pickerOutcome = iota
	pickerChosen
	pickerAborted
)

// repoPicker is the "select repository" prompt: a path input whose text
// fuzzy-filters the recent repositories shown below it.
type repoPicker struct {
	input   textinput.Model
	recent  []domain.RecentRepository
	matches []domain.RecentRepository
	// cursor is -1 while the typed path is selected.
	cursor int
}

func newRepoPicker(width int) repoPicker {
	ti := textinput.New()
	ti.Placeholder = "path to a git repository"
	ti.CharLimit = 4096
	ti.Width = width - 10
	ti.Focus()

	return repoPicker{input: ti, cursor: -1}
}

// setRecent replaces the recent repositories and refilters.
func (p repoPicker) setRecent(recent []domain.RecentRepository) repoPicker {
	p.recent = recent
	p.matches = storage.FilterRecent(recent, p.input.Value(), 0)
	p.cursor = -1
	return p
}

func (p repoPicker) update(msg tea.Msg) (repoPicker, pickerOutcome, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "ctrl+c":
			return p, pickerAborted, nil
		case "enter":
			if p.choice() == "" {
				return p, pickerOpen, nil
			}
			return p, pickerChosen, nil
		case "up":
			if p.cursor > -1 {
				p.cursor--
			}
			return p, pickerOpen, nil
		case "down", "tab":
			if p.cursor < len(p.matches)-1 {
				p.cursor++
			}
			return p, pickerOpen, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.matches = storage.FilterRecent(p.recent, p.input.Value(), 0)
		p.cursor = -1
	}
	return p, pickerOpen, cmd
}

// choice returns the path that enter would select.
func (p repoPicker) choice() string {
	if p.cursor >= 0 && p.cursor < len(p.matches) {
		return p.matches[p.cursor].Path
	}
	typed := strings.TrimSpace(p.input.Value())
	if typed == "" {
		if len(p.matches) > 0 {
			return p.matches[0].Path
		}
		return ""
	}
	return expandHome(typed)
}

func (p repoPicker) view() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Select repository") + " ")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")

	if len(p.matches) == 0 && len(p.recent) > 0 {
		b.WriteString(dimStyle.Render("    no recent repository matches") + "\n")
	}
	for i, repo := range p.matches {
		if i == maxPickerRows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    … %d more", len(p.matches)-maxPickerRows)) + "\n")
			break
		}
		line := fmt.Sprintf("%-20s %s", repo.Name, repo.Path)
		if i == p.cursor {
			b.WriteString("  " + activeStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(dimStyle.Render("    "+line) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ↑/↓ recent · enter select · esc back") + "\n")
	return b.String()
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
