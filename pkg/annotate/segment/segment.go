// Package segment splits raw text into sentence spans using a Punkt
// boundary model.
package segment

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

// Span is one sentence of the input. Start and End are byte offsets into
// the segmented text, so text[Start:End] == Text.
type Span struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Source is the human-authored form of a segmentation model.
type Source struct {
	Abbreviations []string `yaml:"abbreviations"`
	SentStarters  []string `yaml:"sent_starters"`
	// Collocations are word pairs that never straddle a boundary, written
	// "first second".
	Collocations []string `yaml:"collocations"`
}

// punktTraining mirrors the Punkt training JSON read by sentences.LoadTraining.
type punktTraining struct {
	AbbrevTypes  map[string]int `json:"AbbrevTypes"`
	Collocations map[string]int `json:"Collocations"`
	SentStarters map[string]int `json:"SentStarters"`
	OrthoContext map[string]int `json:"OrthoContext"`
}

// Compile turns src into a sentence model blob for ref.
func Compile(ref model.Ref, src Source) ([]byte, error) {
	tr := punktTraining{
		AbbrevTypes:  setOf(src.Abbreviations, func(s string) string { return strings.TrimSuffix(s, ".") }),
		Collocations: setOf(src.Collocations, func(s string) string { return strings.Join(strings.Fields(s), ",") }),
		SentStarters: setOf(src.SentStarters, nil),
		OrthoContext: map[string]int{},
	}
	payload, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", ref, err)
	}
	return model.Encode(ref, model.KindSentence, payload)
}

func setOf(items []string, clean func(string) string) map[string]int {
	set := make(map[string]int, len(items))
	for _, it := range items {
		it = strings.ToLower(strings.TrimSpace(it))
		if clean != nil {
			it = clean(it)
		}
		if it != "" {
			set[it] = 1
		}
	}
	return set
}

// Model is a loaded segmentation model.
type Model struct {
	// the Punkt tokenizer keeps no documented concurrency guarantee, so
	// calls are serialised
	mu        sync.Mutex
	tokenizer *sentences.DefaultSentenceTokenizer
	abbrevs   int
}

// Decode builds a Model from a blob payload.
func Decode(payload []byte) (*Model, error) {
	var probe punktTraining
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("punkt training: %w", err)
	}
	storage, err := sentences.LoadTraining(payload)
	if err != nil {
		return nil, fmt.Errorf("punkt training: %w", err)
	}
	return &Model{
		tokenizer: sentences.NewSentenceTokenizer(storage),
		abbrevs:   len(probe.AbbrevTypes),
	}, nil
}

// Abbreviations returns the number of known abbreviation types.
func (m *Model) Abbreviations() int { return m.abbrevs }

// Segment splits text into sentence spans in left-to-right order.
// Whitespace-only input yields no spans.
func (m *Model) Segment(text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	m.mu.Lock()
	raw := m.tokenizer.Tokenize(text)
	m.mu.Unlock()

	spans := make([]Span, 0, len(raw))
	cursor := 0
	for _, s := range raw {
		sent := strings.TrimSpace(s.Text)
		if sent == "" {
			continue
		}
		idx := strings.Index(text[cursor:], sent)
		if idx < 0 {
			return nil, fmt.Errorf("segment: sentence %q not found after offset %d", sent, cursor)
		}
		start := cursor + idx
		end := start + len(sent)
		spans = append(spans, Span{Text: sent, Start: start, End: end})
		cursor = end
	}
	return spans, nil
}
