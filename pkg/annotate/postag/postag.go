// Package postag assigns part-of-speech tags to a token sequence with a
// first-order Viterbi decoder over a weight table loaded from a model blob.
package postag

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

// Start is the pseudo-tag preceding the first token in Transitions.
const Start = "<s>"

// Word shapes consulted for tokens missing from the lexicon.
const (
	ShapeNumber      = "number"
	ShapePunct       = "punct"
	ShapeSymbol      = "symbol"
	ShapeCapitalized = "capitalized"
	ShapeLower       = "lower"
)

// Source is the human-authored (and serialized) form of a tagger model.
// All weights are additive scores; higher is better.
type Source struct {
	// Tags is the tagset. Its order breaks ties between equal scores.
	Tags    []string `yaml:"tags" msgpack:"tags"`
	Default string   `yaml:"default" msgpack:"default"`
	// Unseen is the score of a transition missing from Transitions.
	Unseen float64 `yaml:"unseen" msgpack:"unseen"`
	// Lexicon maps a case-folded word to its tag weights.
	Lexicon map[string]map[string]float64 `yaml:"lexicon" msgpack:"lexicon"`
	// Suffixes maps a case-folded word ending to tag weights for unknown words.
	Suffixes    map[string]map[string]float64 `yaml:"suffixes" msgpack:"suffixes"`
	Shapes      map[string]map[string]float64 `yaml:"shapes" msgpack:"shapes"`
	Transitions map[string]map[string]float64 `yaml:"transitions" msgpack:"transitions"`
}

// Compile validates src and turns it into a tagger model blob for ref.
func Compile(ref model.Ref, src Source) ([]byte, error) {
	if _, err := New(src); err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	payload, err := msgpack.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	return model.Encode(ref, model.KindPOS, payload)
}

// miss is the emission score of a tag the lexicon never assigned a word.
const miss = -1e6

// Model is a loaded tagger model. It is immutable and safe for concurrent use.
type Model struct {
	tags      []string
	index     map[string]int
	def       int
	unseen    float64
	lexicon   map[string][]float64
	suffixes  map[string][]float64
	maxSuffix int
	shapes    map[string][]float64
	start     []float64
	trans     [][]float64
}

// Decode builds a Model from a blob payload.
func Decode(payload []byte) (*Model, error) {
	var src Source
	if err := msgpack.Unmarshal(payload, &src); err != nil {
		return nil, fmt.Errorf("tagger weights: %w", err)
	}
	return New(src)
}

// New builds a Model from its source form, rejecting weights that refer to
// tags outside the tagset.
func New(src Source) (*Model, error) {
	if len(src.Tags) == 0 {
		return nil, fmt.Errorf("empty tagset")
	}
	m := &Model{
		tags:     append([]string(nil), src.Tags...),
		index:    make(map[string]int, len(src.Tags)),
		unseen:   src.Unseen,
		lexicon:  make(map[string][]float64, len(src.Lexicon)),
		suffixes: make(map[string][]float64, len(src.Suffixes)),
		shapes:   make(map[string][]float64, len(src.Shapes)),
	}
	for i, t := range src.Tags {
		if _, dup := m.index[t]; dup {
			return nil, fmt.Errorf("duplicate tag %q", t)
		}
		m.index[t] = i
	}
	def, ok := m.index[src.Default]
	if !ok {
		return nil, fmt.Errorf("default tag %q not in tagset", src.Default)
	}
	m.def = def

	var err error
	if m.lexicon, err = m.vectors(src.Lexicon, miss, fold); err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	if m.suffixes, err = m.vectors(src.Suffixes, miss, fold); err != nil {
		return nil, fmt.Errorf("suffixes: %w", err)
	}
	for s := range m.suffixes {
		if n := utf8.RuneCountInString(s); n > m.maxSuffix {
			m.maxSuffix = n
		}
	}
	if m.shapes, err = m.vectors(src.Shapes, miss, nil); err != nil {
		return nil, fmt.Errorf("shapes: %w", err)
	}

	m.start = m.row(src.Transitions[Start])
	m.trans = make([][]float64, len(m.tags))
	for i, t := range m.tags {
		m.trans[i] = m.row(src.Transitions[t])
	}
	for prev, row := range src.Transitions {
		if _, ok := m.index[prev]; !ok && prev != Start {
			return nil, fmt.Errorf("transitions: unknown tag %q", prev)
		}
		for next := range row {
			if _, ok := m.index[next]; !ok {
				return nil, fmt.Errorf("transitions: unknown tag %q", next)
			}
		}
	}
	return m, nil
}

func (m *Model) vectors(in map[string]map[string]float64, fill float64, key func(string) string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(in))
	for k, weights := range in {
		vec := make([]float64, len(m.tags))
		for i := range vec {
			vec[i] = fill
		}
		for tag, w := range weights {
			i, ok := m.index[tag]
			if !ok {
				return nil, fmt.Errorf("%q: unknown tag %q", k, tag)
			}
			vec[i] = w
		}
		if key != nil {
			k = key(k)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("duplicate key %q", k)
		}
		out[k] = vec
	}
	return out, nil
}

func (m *Model) row(weights map[string]float64) []float64 {
	r := make([]float64, len(m.tags))
	for i, t := range m.tags {
		if w, ok := weights[t]; ok {
			r[i] = w
		} else {
			r[i] = m.unseen
		}
	}
	return r
}

// Tags returns a copy of the tagset.
func (m *Model) Tags() []string {
	return append([]string(nil), m.tags...)
}

// Tag returns one tag per token. The whole sentence is decoded jointly, so
// a token's tag may depend on its neighbours.
func (m *Model) Tag(tokens []string) ([]string, error) {
	n := len(tokens)
	if n == 0 {
		return []string{}, nil
	}
	T := len(m.tags)
	score := make([][]float64, n)
	back := make([][]int, n)

	emit := m.emission(tokens[0], true)
	score[0] = make([]float64, T)
	back[0] = make([]int, T)
	for t := 0; t < T; t++ {
		score[0][t] = m.start[t] + emit[t]
	}

	for i := 1; i < n; i++ {
		emit = m.emission(tokens[i], false)
		score[i] = make([]float64, T)
		back[i] = make([]int, T)
		for t := 0; t < T; t++ {
			best, arg := math.Inf(-1), 0
			for p := 0; p < T; p++ {
				s := score[i-1][p] + m.trans[p][t]
				if s > best {
					best, arg = s, p
				}
			}
			score[i][t] = best + emit[t]
			back[i][t] = arg
		}
	}

	best, arg := math.Inf(-1), 0
	for t := 0; t < T; t++ {
		if score[n-1][t] > best {
			best, arg = score[n-1][t], t
		}
	}
	if math.IsInf(best, 0) || math.IsNaN(best) {
		return nil, fmt.Errorf("tag: no finite path for %d tokens", n)
	}

	out := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = m.tags[arg]
		arg = back[i][arg]
	}
	return out, nil
}

// emission scores every tag for token: lexicon first, then a distinctive
// word shape, then the longest known suffix, then the plain shape, then the
// default tag.
func (m *Model) emission(token string, first bool) []float64 {
	key := fold(token)
	if vec, ok := m.lexicon[key]; ok {
		return vec
	}
	shape := shapeOf(token, first)
	if shape != ShapeLower {
		if vec, ok := m.shapes[shape]; ok {
			return vec
		}
	}
	runes := []rune(key)
	for l := min(m.maxSuffix, len(runes)-1); l > 0; l-- {
		if vec, ok := m.suffixes[string(runes[len(runes)-l:])]; ok {
			return vec
		}
	}
	if vec, ok := m.shapes[shape]; ok {
		return vec
	}
	vec := make([]float64, len(m.tags))
	for i := range vec {
		vec[i] = miss
	}
	vec[m.def] = 0
	return vec
}

func shapeOf(token string, first bool) string {
	var digits, letters, punct, symbols int
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case unicode.IsPunct(r):
			punct++
		case unicode.IsSymbol(r):
			symbols++
		}
	}
	switch {
	case digits > 0 && letters == 0:
		return ShapeNumber
	case letters == 0 && symbols > 0:
		return ShapeSymbol
	case letters == 0 && punct > 0:
		return ShapePunct
	}
	r, size := utf8.DecodeRuneInString(token)
	if unicode.IsUpper(r) && (!first || strings.IndexFunc(token[size:], unicode.IsUpper) >= 0) {
		return ShapeCapitalized
	}
	return ShapeLower
}

// fold normalises a lexicon key. A Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Lower(language.English).String(norm.NFC.String(strings.TrimSpace(s)))
}
