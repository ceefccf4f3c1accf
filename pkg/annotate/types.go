package annotate

import (
	"github.com/cognicore/annotate/pkg/annotate/segment"
)

// Stage names reported in errors and logs
const (
	StageSegment   = "segment"
	StageTokenize  = "tokenize"
	StageTag       = "tag"
	StageLemmatize = "lemmatize"
)

// Segmenter splits text into ordered, non-overlapping sentence spans.
type Segmenter interface {
	Segment(text string) ([]segment.Span, error)
}

// Tokenizer splits one sentence into ordered tokens.
type Tokenizer interface {
	Tokenize(sentence string) ([]string, error)
}

// Tagger assigns one tag per token of a whole sentence.
type Tagger interface {
	Tag(tokens []string) ([]string, error)
}

// Lemmatizer assigns one lemma per (token, tag) pair.
type Lemmatizer interface {
	Lemmatize(tokens, tags []string) ([]string, error)
}

// Stages bundles the four stage implementations a Pipeline runs.
type Stages struct {
	Segmenter  Segmenter
	Tokenizer  Tokenizer
	Tagger     Tagger
	Lemmatizer Lemmatizer
}

// AnnotatedSentence holds the annotations of one sentence. Tokens, Tags and
// Lemmas are positionally aligned and always have equal length.
type AnnotatedSentence struct {
	Text   string   `json:"text"`
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Tokens []string `json:"tokens"`
	Tags   []string `json:"tags"`
	Lemmas []string `json:"lemmas"`
}

// Aligned reports whether the token, tag and lemma sequences line up.
func (s AnnotatedSentence) Aligned() bool {
	return len(s.Tokens) == len(s.Tags) && len(s.Tags) == len(s.Lemmas)
}

// AnnotatedText is the result of one Annotate call, one entry per sentence
// in input order.
type AnnotatedText struct {
	Sentences []AnnotatedSentence `json:"sentences"`
}

// TokenCount returns the number of tokens across all sentences.
func (t AnnotatedText) TokenCount() int {
	n := 0
	for _, s := range t.Sentences {
		n += len(s.Tokens)
	}
	return n
}
