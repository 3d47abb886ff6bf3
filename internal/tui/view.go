package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
	"github.com/parsely/flipcards/internal/viewer"
)

const listWindow = 15

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	normalStyle = lipgloss.NewStyle()

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// cardStyle frames a card face in the card's swatch color
func cardStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(db.NormalizeColor(color))).
		Padding(1, 3).
		Width(56)
}

func (m Model) View() string {
	switch m.view {
	case viewMenu:
		return m.renderMenu()
	case viewEditor:
		return m.renderEditor()
	case viewList:
		return m.renderCardList()
	case viewCard:
		return m.renderCard()
	case viewReview:
		return m.renderReview()
	case viewInput:
		return m.renderInput()
	case viewLoading:
		return m.renderLoading()
	case viewResults:
		return m.renderResults()
	}
	return m.renderMenu()
}

func (m Model) renderMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Flipcards - Vocabulary Cards"))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if m.cursor == i {
			s.WriteString(selectedStyle.Render("> " + item))
		} else {
			s.WriteString(normalStyle.Render("  " + item))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n\n")
	s.WriteString("Use ↑/↓ arrows or j/k to navigate, Enter to select, q to quit")

	return menuStyle.Render(s.String())
}

func (m Model) renderEditor() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("New Card"))
	s.WriteString("\n\n")

	var vErr *editor.ValidationError
	errors.As(m.formErr, &vErr)

	d := m.editor.Draft()
	refs := formFields(d)
	for i, ref := range refs {
		if i > 0 && ref.kind != refCard && (refs[i-1].kind != ref.kind || refs[i-1].index != ref.index) {
			s.WriteString("\n")
		}

		label := fmt.Sprintf("%-26s", ref.label())
		value := displayValue(ref, d)
		if i == m.focus {
			s.WriteString(selectedStyle.Render("> " + label))
			if ref.editable() || ref.isImage() {
				if ref.isImage() && value != "" {
					s.WriteString(value + "  ")
				}
				s.WriteString(m.input.View())
			} else {
				s.WriteString(value)
			}
		} else {
			s.WriteString(normalStyle.Render("  " + label))
			s.WriteString(value)
		}

		if vErr != nil {
			for _, f := range vErr.Fields {
				if f.Field == ref.path() {
					s.WriteString("  " + errorStyle.Render(f.Message))
				}
			}
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	switch {
	case vErr != nil:
		if vErr.Has("means") {
			s.WriteString(errorStyle.Render("At least one meaning is required"))
			s.WriteString("\n")
		}
		s.WriteString(errorStyle.Render("Card is incomplete"))
	case m.formErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.formErr)))
	case m.suggesting:
		s.WriteString(m.spinner.View() + " Asking for suggestions...")
	case m.notice != "":
		s.WriteString(successStyle.Render(m.notice))
	}
	if n := m.editor.PendingImages(); n > 0 {
		s.WriteString(dimStyle.Render(fmt.Sprintf("  (%d image(s) decoding)", n)))
	}

	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("Tab/↑/↓ move  Ctrl+S save  Ctrl+N add meaning  Ctrl+T add idiom  Ctrl+D remove entry\n" +
		"Ctrl+X clear image  Ctrl+P speak  Ctrl+G suggest  ←/→ color  Esc menu"))

	return menuStyle.Render(s.String())
}

func displayValue(ref fieldRef, d editor.Draft) string {
	value := ref.value(d)
	switch {
	case ref.kind == refCard && ref.name == "color":
		return lipgloss.NewStyle().Foreground(lipgloss.Color(value)).Render("■ " + value)
	case ref.kind == refCard && ref.name == "multiVoice":
		if value == "true" {
			return "[x]"
		}
		return "[ ]"
	case ref.isImage():
		if value == "" {
			return ""
		}
		return fmt.Sprintf("[image, %d bytes]", len(value))
	}
	return value
}

func (m Model) renderCardList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Cards"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if len(m.cards) == 0 {
		s.WriteString("No cards yet. Add one from the menu.\n")
	} else {
		s.WriteString(fmt.Sprintf("Total cards: %d\n\n", len(m.cards)))
		start := 0
		if m.listCursor >= listWindow {
			start = m.listCursor - listWindow + 1
		}
		end := min(start+listWindow, len(m.cards))
		for i := start; i < end; i++ {
			c := m.cards[i]
			line := fmt.Sprintf("%s  (%d meanings, %d idioms)", c.Word, len(c.Means), len(c.Idioms))
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(db.NormalizeColor(c.Color))).Render("■ ")
			if i == m.listCursor {
				s.WriteString(selectedStyle.Render("> ") + swatch + selectedStyle.Render(line))
			} else {
				s.WriteString("  " + swatch + line)
			}
			s.WriteString("\n")
		}
		if end < len(m.cards) {
			s.WriteString(dimStyle.Render(fmt.Sprintf("... and %d more", len(m.cards)-end)))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(dimStyle.Render("Enter open  s speak  d delete  Esc menu"))

	return menuStyle.Render(s.String())
}

func (m Model) renderCard() string {
	var s strings.Builder

	card := m.card.Card
	s.WriteString(titleStyle.Render(card.Word))
	s.WriteString("\n\n")

	s.WriteString(cardStyle(card.Color).Render(renderFace(card, m.card.Face())))
	s.WriteString("\n")

	dots := make([]string, m.card.Len())
	for i := range dots {
		dots[i] = "○"
		if i == m.card.Current() {
			dots[i] = "●"
		}
	}
	s.WriteString(strings.Join(dots, " "))
	if m.card.Flipping() {
		s.WriteString(dimStyle.Render("  flipping..."))
	}

	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("←/→ flip  1-9 jump to face  0 front  s speak  Esc back"))

	return menuStyle.Render(s.String())
}

// renderFace draws the content of one face of card
func renderFace(card db.Card, face viewer.Face) string {
	var s strings.Builder

	switch face.Kind {
	case viewer.FaceMain:
		s.WriteString(lipgloss.NewStyle().Bold(true).Render(card.Word))
		if card.Pronunciation != "" {
			s.WriteString("\n" + dimStyle.Render(card.Pronunciation))
		}
		s.WriteString(fmt.Sprintf("\n\n%d meaning(s)", len(card.Means)))
		if len(card.Idioms) > 0 {
			s.WriteString(fmt.Sprintf(", %d idiom(s)", len(card.Idioms)))
		}

	case viewer.FaceMeaning:
		mean := card.Means[face.Meaning]
		s.WriteString(fmt.Sprintf("Meaning %d of %d\n\n", face.Meaning+1, len(card.Means)))
		if card.MultiVoice && mean.Pronunciation != "" {
			s.WriteString(dimStyle.Render(mean.Pronunciation) + "\n")
		}
		if mean.Translate != "" {
			s.WriteString(lipgloss.NewStyle().Bold(true).Render(mean.Translate) + "\n")
		}
		s.WriteString(mean.Definition)
		if mean.Example != "" {
			s.WriteString("\n\n" + lipgloss.NewStyle().Italic(true).Render(mean.Example))
		}
		if mean.Image != "" {
			s.WriteString("\n\n" + dimStyle.Render("[image attached]"))
		}

	case viewer.FaceIdioms:
		s.WriteString("Idioms\n")
		for _, idiom := range card.Idioms {
			s.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render(idiom.Idiom))
			s.WriteString("\n  " + idiom.Meaning)
			if idiom.Usage != "" {
				s.WriteString("\n  " + dimStyle.Render(idiom.Usage))
			}
			if idiom.Example != "" {
				s.WriteString("\n  " + lipgloss.NewStyle().Italic(true).Render(idiom.Example))
			}
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m Model) renderReview() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Review"))
	s.WriteString("\n\n")

	card, ok := m.session.Current()
	if !ok {
		s.WriteString("No cards to review. Add some cards first.\n")
		s.WriteString("\n\nPress Esc to return to menu")
		return menuStyle.Render(s.String())
	}

	pos, total := m.session.Position()
	s.WriteString(dimStyle.Render(fmt.Sprintf("Card %d of %d", pos, total)))
	s.WriteString("\n\n")

	var body strings.Builder
	body.WriteString(lipgloss.NewStyle().Bold(true).Render(card.Word))
	if card.Pronunciation != "" {
		body.WriteString("\n" + dimStyle.Render(card.Pronunciation))
	}
	if m.session.ShowDefinition() {
		for i, mean := range card.Means {
			body.WriteString(fmt.Sprintf("\n\n%d. %s", i+1, mean.Definition))
			if mean.Example != "" {
				body.WriteString("\n   " + lipgloss.NewStyle().Italic(true).Render(mean.Example))
			}
		}
	} else {
		body.WriteString("\n\n" + dimStyle.Render("Space to show the definition"))
	}
	s.WriteString(cardStyle(card.Color).Render(body.String()))

	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("Space show/hide  n next  r reshuffle  s speak  Esc menu"))

	return menuStyle.Render(s.String())
}

func (m Model) renderLoading() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Flipcards - Vocabulary Cards"))
	s.WriteString("\n\n")
	s.WriteString(m.spinner.View())
	s.WriteString(" Importing cards...")

	return menuStyle.Render(s.String())
}

func (m Model) renderInput() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Flipcards - Vocabulary Cards"))
	s.WriteString("\n\n")

	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString("Press Enter to submit, Esc to cancel")

	return menuStyle.Render(s.String())
}

func (m Model) renderResults() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Results"))
	s.WriteString("\n\n")

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.result != nil:
		s.WriteString(successStyle.Render("Import finished"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Cards added: %d\n", m.result.Added))
		s.WriteString(fmt.Sprintf("Duplicates skipped: %d\n", m.result.Duplicates))
		s.WriteString(fmt.Sprintf("Invalid lines: %d\n", m.result.Invalid))
		s.WriteString(fmt.Sprintf("Total processed: %d\n", m.result.TotalProcessed))
	case m.exported != "":
		s.WriteString(successStyle.Render("Export completed successfully!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Written to %s\n", m.exported))
	}

	s.WriteString("\n\nPress Enter to return to menu")

	return menuStyle.Render(s.String())
}
