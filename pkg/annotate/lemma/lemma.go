// Package lemma maps (token, tag) pairs to base forms using per-tag
// exception tables and suffix rewrite rules loaded from a model blob.
package lemma

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/annotate/pkg/annotate/annoterr"
	"github.com/cognicore/annotate/pkg/annotate/model"
)

// AnyTag keys exceptions that apply regardless of the tag.
const AnyTag = "*"

// Rule rewrites a word ending: a word ending in Suffix with at least MinStem
// runes left becomes stem + Replace.
type Rule struct {
	Suffix  string `yaml:"suffix" msgpack:"suffix"`
	Replace string `yaml:"replace" msgpack:"replace"`
	MinStem int    `yaml:"min_stem" msgpack:"min_stem"`
}

// Source is the human-authored (and serialized) form of a lemmatizer model.
type Source struct {
	// Exceptions maps tag -> case-folded word -> lemma.
	Exceptions map[string]map[string]string `yaml:"exceptions" msgpack:"exceptions"`
	// Rules maps tag -> suffix rules. Longer suffixes are tried first.
	Rules map[string][]Rule `yaml:"rules" msgpack:"rules"`
	// Keep lists tags whose tokens are their own lemma, case preserved.
	Keep []string `yaml:"keep" msgpack:"keep"`
}

// Compile turns src into a lemmatizer model blob for ref.
func Compile(ref model.Ref, src Source) ([]byte, error) {
	if _, err := New(src); err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	payload, err := msgpack.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	return model.Encode(ref, model.KindLemmas, payload)
}

// Model is a loaded lemmatizer model. It is immutable and safe for
// concurrent use.
type Model struct {
	exceptions map[string]map[string]string
	rules      map[string][]Rule
	keep       map[string]struct{}
}

// Decode builds a Model from a blob payload.
func Decode(payload []byte) (*Model, error) {
	var src Source
	if err := msgpack.Unmarshal(payload, &src); err != nil {
		return nil, fmt.Errorf("lemmatizer tables: %w", err)
	}
	return New(src)
}

// New builds a Model from its source form.
func New(src Source) (*Model, error) {
	m := &Model{
		exceptions: make(map[string]map[string]string, len(src.Exceptions)),
		rules:      make(map[string][]Rule, len(src.Rules)),
		keep:       make(map[string]struct{}, len(src.Keep)),
	}
	for tag, words := range src.Exceptions {
		table := make(map[string]string, len(words))
		for w, l := range words {
			k := fold(w)
			if prev, dup := table[k]; dup && prev != l {
				return nil, fmt.Errorf("exceptions %s: %q maps to both %q and %q", tag, k, prev, l)
			}
			table[k] = l
		}
		m.exceptions[tag] = table
	}
	for tag, rules := range src.Rules {
		sorted := make([]Rule, 0, len(rules))
		for _, r := range rules {
			if r.Suffix == "" {
				return nil, fmt.Errorf("rules %s: empty suffix", tag)
			}
			sorted = append(sorted, r)
		}
		sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Suffix) > len(sorted[j].Suffix) })
		m.rules[tag] = sorted
	}
	for _, tag := range src.Keep {
		m.keep[tag] = struct{}{}
	}
	return m, nil
}

// Lemmatize returns one lemma per token. tokens and tags must come from the
// same sentence and be positionally aligned; a length mismatch fails with
// *annoterr.InvalidInputError and no output.
func (m *Model) Lemmatize(tokens, tags []string) ([]string, error) {
	if len(tokens) != len(tags) {
		return nil, &annoterr.InvalidInputError{
			Op:     "lemmatize",
			Reason: fmt.Sprintf("%d tokens but %d tags", len(tokens), len(tags)),
		}
	}
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = m.lemma(tok, tags[i])
	}
	return out, nil
}

func (m *Model) lemma(token, tag string) string {
	if _, ok := m.keep[tag]; ok {
		return token
	}
	key := fold(token)
	if l, ok := m.exceptions[tag][key]; ok {
		return l
	}
	if l, ok := m.exceptions[AnyTag][key]; ok {
		return l
	}
	for _, r := range m.rules[tag] {
		if !strings.HasSuffix(key, r.Suffix) {
			continue
		}
		stem := key[:len(key)-len(r.Suffix)]
		if utf8.RuneCountInString(stem) < max(r.MinStem, 1) {
			continue
		}
		return stem + r.Replace
	}
	return key
}

// fold normalises a lookup key. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Lower(language.English).String(norm.NFC.String(s))
}
