package pin

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var errPromptCancelled = errors.New("pin entry cancelled")

type entryField struct {
	name   string
	masked bool
	value  string
	minLen int
	maxLen int
}

// pinEntryModel collects a PIN, masked, and optionally the PAN it belongs to.
type pinEntryModel struct {
	fields       []entryField
	currentField int
	message      string
	done         bool
	cancelled    bool
}

// newPinEntryModel returns a model asking for the PIN, and for the PAN when
// pan is empty.
func newPinEntryModel(pan string) pinEntryModel {
	fields := []entryField{
		{name: "PIN", masked: true, minLen: 4, maxLen: 6},
	}
	if pan == "" {
		fields = append(fields, entryField{name: "PAN", minLen: 13, maxLen: 19})
	}

	return pinEntryModel{fields: fields}
}

// Init initializes the model.
func (m pinEntryModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (m pinEntryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	field := &m.fields[m.currentField]
	m.message = ""

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true

		return m, tea.Quit
	case "enter":
		if len(field.value) < field.minLen {
			m.message = fmt.Sprintf("%s needs at least %d digits", field.name, field.minLen)

			return m, nil
		}
		if m.currentField >= len(m.fields)-1 {
			m.done = true

			return m, tea.Quit
		}
		m.currentField++
	case "tab":
		if m.currentField < len(m.fields)-1 {
			m.currentField++
		}
	case "shift+tab":
		if m.currentField > 0 {
			m.currentField--
		}
	case "backspace":
		if len(field.value) > 0 {
			field.value = field.value[:len(field.value)-1]
		}
	default:
		s := key.String()
		if len(s) != 1 || s[0] < '0' || s[0] > '9' {
			return m, nil
		}
		if len(field.value) >= field.maxLen {
			m.message = fmt.Sprintf("%s holds at most %d digits", field.name, field.maxLen)

			return m, nil
		}
		field.value += s
	}

	return m, nil
}

// View renders the current field.
func (m pinEntryModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString("Enter PIN details\n")
	b.WriteString(strings.Repeat("=", 30) + "\n\n")
	for i, f := range m.fields {
		marker := "  "
		if i == m.currentField {
			marker = "▶ "
		}
		shown := f.value
		if f.masked {
			shown = strings.Repeat("*", len(f.value))
		}
		fmt.Fprintf(&b, "%s%s: [ %s ]\n", marker, f.name, shown)
	}
	if m.message != "" {
		b.WriteString("\n" + m.message + "\n")
	}
	b.WriteString("\nenter: confirm  tab/shift+tab: move  esc: cancel\n")

	return b.String()
}

// value returns the entered value of the named field.
func (m pinEntryModel) value(name string) string {
	for _, f := range m.fields {
		if f.name == name {
			return f.value
		}
	}

	return ""
}

// promptPin runs the entry model on the terminal and returns PIN and PAN.
func promptPin(pan string) (string, string, error) {
	final, err := tea.NewProgram(newPinEntryModel(pan)).Run()
	if err != nil {
		return "", "", fmt.Errorf("pin prompt: %w", err)
	}
	m, ok := final.(pinEntryModel)
	if !ok || m.cancelled || !m.done {
		return "", "", errPromptCancelled
	}
	if pan == "" {
		pan = m.value("PAN")
	}

	return m.value("PIN"), pan, nil
}
