// Package tokenize splits one sentence into word and punctuation tokens
// using a rule table loaded from a model blob.
package tokenize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

// Source is the human-authored (and serialized) form of a tokenizer model.
type Source struct {
	// Punctuation lists the characters split off word edges. Empty means
	// every unicode punctuation or symbol character.
	Punctuation string `yaml:"punctuation" msgpack:"punctuation"`
	// MultiPunct are punctuation runs kept as one token, e.g. "..." or "--".
	MultiPunct []string `yaml:"multi_punct" msgpack:"multi_punct"`
	// Abbreviations keep their trailing period, e.g. "Mr." or "U.S.".
	Abbreviations []string `yaml:"abbreviations" msgpack:"abbreviations"`
	// Clitics are split from the end of a word, e.g. "n't" or "'s".
	Clitics []string `yaml:"clitics" msgpack:"clitics"`
}

// Compile turns src into a tokenizer model blob for ref.
func Compile(ref model.Ref, src Source) ([]byte, error) {
	payload, err := msgpack.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	return model.Encode(ref, model.KindTokens, payload)
}

// Model is a loaded tokenizer model. It is immutable and safe for
// concurrent use.
type Model struct {
	punct      map[rune]struct{}
	multiPunct []string
	abbrevs    map[string]struct{}
	clitics    []string
}

// Decode builds a Model from a blob payload.
func Decode(payload []byte) (*Model, error) {
	var src Source
	if err := msgpack.Unmarshal(payload, &src); err != nil {
		return nil, fmt.Errorf("tokenizer rules: %w", err)
	}
	return New(src), nil
}

// New builds a Model directly from its source form.
func New(src Source) *Model {
	m := &Model{
		abbrevs: make(map[string]struct{}, len(src.Abbreviations)),
	}
	if src.Punctuation != "" {
		m.punct = make(map[rune]struct{})
		for _, r := range src.Punctuation {
			m.punct[r] = struct{}{}
		}
	}
	for _, a := range src.Abbreviations {
		m.abbrevs[strings.ToLower(a)] = struct{}{}
	}
	m.multiPunct = longestFirst(src.MultiPunct)
	m.clitics = longestFirst(src.Clitics)
	return m
}

func longestFirst(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Tokenize splits sentence into tokens. Whitespace-only input yields an
// empty slice.
func (m *Model) Tokenize(sentence string) ([]string, error) {
	if !utf8.ValidString(sentence) {
		return nil, fmt.Errorf("tokenize: invalid UTF-8")
	}
	tokens := make([]string, 0, len(sentence)/4+1)
	for _, field := range strings.Fields(sentence) {
		tokens = m.appendField(tokens, field)
	}
	return tokens, nil
}

func (m *Model) appendField(tokens []string, field string) []string {
	if m.isAbbrev(field) {
		return append(tokens, field)
	}

	// leading punctuation
	for field != "" {
		p := m.leadingPunct(field)
		if p == "" {
			break
		}
		tokens = append(tokens, p)
		field = field[len(p):]
	}

	// trailing punctuation, collected right to left
	var trail []string
	for field != "" && !m.isAbbrev(field) {
		p := m.trailingPunct(field)
		if p == "" {
			break
		}
		trail = append(trail, p)
		field = field[:len(field)-len(p)]
	}

	if field != "" {
		tokens = append(tokens, m.splitClitic(field)...)
	}
	for i := len(trail) - 1; i >= 0; i-- {
		tokens = append(tokens, trail[i])
	}
	return tokens
}

func (m *Model) isAbbrev(s string) bool {
	_, ok := m.abbrevs[strings.ToLower(s)]
	return ok
}

func (m *Model) isPunct(r rune) bool {
	if m.punct != nil {
		_, ok := m.punct[r]
		return ok
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func (m *Model) leadingPunct(s string) string {
	for _, mp := range m.multiPunct {
		if strings.HasPrefix(s, mp) {
			return mp
		}
	}
	r, size := utf8.DecodeRuneInString(s)
	if m.isPunct(r) {
		return s[:size]
	}
	return ""
}

func (m *Model) trailingPunct(s string) string {
	for _, mp := range m.multiPunct {
		if strings.HasSuffix(s, mp) {
			return mp
		}
	}
	r, size := utf8.DecodeLastRuneInString(s)
	if m.isPunct(r) {
		return s[len(s)-size:]
	}
	return ""
}

func (m *Model) splitClitic(word string) []string {
	lower := strings.ToLower(word)
	if len(lower) != len(word) {
		return []string{word}
	}
	for _, c := range m.clitics {
		if len(lower) > len(c) && strings.HasSuffix(lower, c) {
			cut := len(word) - len(c)
			return []string{word[:cut], word[cut:]}
		}
	}
	return []string{word}
}
