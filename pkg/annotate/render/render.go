// Package render formats annotation results for display.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/annotate/pkg/annotate"
)

// Renderer writes one annotated input.
type Renderer interface {
	Render(input string, at annotate.AnnotatedText) error
}

// TextRenderer prints sentences, tokens, token/tag pairs and token -> lemma
// pairs, one block per sentence.
type TextRenderer struct {
	W io.Writer
}

// NewTextRenderer creates a TextRenderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{W: w}
}

// Render implements Renderer.
func (r *TextRenderer) Render(input string, at annotate.AnnotatedText) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- text: %s ---\n", input)
	b.WriteString("Sentences:\n")
	for _, s := range at.Sentences {
		fmt.Fprintf(&b, "  - %s\n", s.Text)
	}

	for _, s := range at.Sentences {
		fmt.Fprintf(&b, "\n  Tokens (%s):\n  ", s.Text)
		for _, tok := range s.Tokens {
			b.WriteString(tok + " | ")
		}
		b.WriteString("\n  POS:\n  ")
		for i, tok := range s.Tokens {
			fmt.Fprintf(&b, "%s/%s ", tok, s.Tags[i])
		}
		b.WriteString("\n  Lemmas:\n  ")
		for i, tok := range s.Tokens {
			fmt.Fprintf(&b, "%s -> %s ", tok, s.Lemmas[i])
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(r.W, b.String())
	return err
}

// JSONRenderer writes one JSON object per input, newline delimited.
type JSONRenderer struct {
	W io.Writer
}

// NewJSONRenderer creates a JSONRenderer writing to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{W: w}
}

type jsonDoc struct {
	Input     string                       `json:"input"`
	Sentences []annotate.AnnotatedSentence `json:"sentences"`
}

// Render implements Renderer.
func (r *JSONRenderer) Render(input string, at annotate.AnnotatedText) error {
	sents := at.Sentences
	if sents == nil {
		sents = []annotate.AnnotatedSentence{}
	}
	return json.NewEncoder(r.W).Encode(jsonDoc{Input: input, Sentences: sents})
}

// compile-time interface checks
var (
	_ Renderer = (*TextRenderer)(nil)
	_ Renderer = (*JSONRenderer)(nil)
)
