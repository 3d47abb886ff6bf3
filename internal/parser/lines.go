package parser

import (
	"bufio"
	"fmt"
	"strings"
)

// maxLineLength bounds a single card line
const maxLineLength = 1 << 20

// CardLine is one card written as "word = definition | example"
type CardLine struct {
	Line       int
	Word       string
	Definition string
	Example    string
}

// ParseCardLines splits text into card lines. Blank lines and lines starting with '#' are
// skipped; lines without a word and a definition are counted as invalid. A line longer than
// maxLineLength stops parsing with an error.
func ParseCardLines(text string) (cards []CardLine, invalid int, err error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		card, ok := parseCardLine(line)
		if !ok {
			invalid++
			continue
		}
		card.Line = lineNo
		cards = append(cards, card)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read line %d: %w", lineNo+1, err)
	}
	return cards, invalid, nil
}

func parseCardLine(line string) (CardLine, bool) {
	word, rest, found := strings.Cut(line, "=")
	if !found {
		return CardLine{}, false
	}

	definition, example, _ := strings.Cut(rest, "|")
	card := CardLine{
		Word:       strings.TrimSpace(word),
		Definition: strings.TrimSpace(definition),
		Example:    strings.TrimSpace(example),
	}
	if card.Word == "" || card.Definition == "" {
		return CardLine{}, false
	}
	return card, true
}
