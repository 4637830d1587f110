// Package moderation masks censored vocabulary in user-authored chat
// content before records reach the wire.
package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	relayerrors "chat-relay/errors"
)

//go:embed words.txt
var wordFS embed.FS

// Moderator matches censored words against a normalized view of the text
// (lowercased, leet characters simplified, punctuation and spacing
// dropped) and masks the matched span in the original.
type Moderator struct {
	machine  *goahocorasick.Machine
	maskChar rune
}

// NewModerator builds the automaton over the embedded wordlist.
func NewModerator(maskChar rune) (*Moderator, error) {
	words, err := loadWords()
	if err != nil {
		return nil, err
	}
	return NewModeratorWithWords(words, maskChar)
}

// NewModeratorWithWords builds the automaton over an explicit wordlist.
func NewModeratorWithWords(words []string, maskChar rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if normalized := normalize([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}
	if len(patterns) == 0 {
		return nil, relayerrors.ErrEmptyWords
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, maskChar: maskChar}, nil
}

// Mask replaces every censored match with the mask character, preserving
// the length and spacing of the original text.
func (m *Moderator) Mask(content string) string {
	original := []rune(content)
	normalized, originIdx := normalizeIndexed(original)
	if len(normalized) == 0 {
		return content
	}

	spans := m.machine.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return content
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(originIdx) {
			continue
		}
		for i := originIdx[start]; i <= originIdx[end-1]; i++ {
			original[i] = m.maskChar
		}
	}
	return string(original)
}

// normalizeIndexed builds the searchable view of the input while keeping,
// for each normalized rune, the index of the original rune it came from.
func normalizeIndexed(original []rune) ([]rune, []int) {
	normalized := make([]rune, 0, len(original))
	originIdx := make([]int, 0, len(original))
	for i, r := range original {
		clean := simplify(r)
		if isNoise(clean) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(clean))
		originIdx = append(originIdx, i)
	}
	return normalized, originIdx
}

func normalize(input []rune) []rune {
	normalized, _ := normalizeIndexed(input)
	return normalized
}

// simplify maps common leet-speak characters back to their standard
// alphabet counterparts.
func simplify(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during pattern matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

// loadWords parses the embedded wordlist, one word per line, skipping
// blanks and '#' comments.
func loadWords() ([]string, error) {
	data, err := wordFS.ReadFile("words.txt")
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		unique[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(unique) == 0 {
		return nil, relayerrors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for word := range unique {
		words = append(words, word)
	}
	return words, nil
}
