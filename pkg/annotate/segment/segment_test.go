package segment

import (
	"strings"
	"sync"
	"testing"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

var testRef = model.Ref{Name: "en-sent", Version: "1.0"}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	blob, err := Compile(testRef, Source{Abbreviations: []string{"mr.", "dr", "e.g."}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	payload, err := model.Unwrap(blob, testRef, model.KindSentence)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	m, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return m
}

func TestCompileAbbreviations(t *testing.T) {
	m := newTestModel(t)
	if m.Abbreviations() != 3 {
		t.Errorf("abbreviations = %d, want 3", m.Abbreviations())
	}
}

func TestSegmentTwoSentences(t *testing.T) {
	m := newTestModel(t)
	text := "Hi. How are you today?"

	spans, err := m.Segment(text)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(spans), spans)
	}
	if spans[0].Text != "Hi." || spans[1].Text != "How are you today?" {
		t.Errorf("unexpected sentences: %q, %q", spans[0].Text, spans[1].Text)
	}
	for _, s := range spans {
		if text[s.Start:s.End] != s.Text {
			t.Errorf("offsets %d:%d do not select %q", s.Start, s.End, s.Text)
		}
	}
}

func TestSegmentEmpty(t *testing.T) {
	m := newTestModel(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		spans, err := m.Segment(text)
		if err != nil {
			t.Errorf("Segment(%q): %v", text, err)
		}
		if len(spans) != 0 {
			t.Errorf("Segment(%q) = %d spans, want 0", text, len(spans))
		}
	}
}

func TestSegmentOrderAndCoverage(t *testing.T) {
	m := newTestModel(t)
	text := "The first one is short. The second one is longer than the first!  Is there a third? Yes."

	spans, err := m.Segment(text)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(spans) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %+v", len(spans), spans)
	}

	prevEnd := 0
	var words []string
	for _, s := range spans {
		if s.Start < prevEnd {
			t.Errorf("span %+v overlaps previous end %d", s, prevEnd)
		}
		prevEnd = s.End
		words = append(words, strings.Fields(s.Text)...)
	}
	if got, want := strings.Join(words, " "), strings.Join(strings.Fields(text), " "); got != want {
		t.Errorf("sentences dropped content:\n got %q\nwant %q", got, want)
	}
}

func TestSegmentDeterministicAndConcurrent(t *testing.T) {
	m := newTestModel(t)
	text := "One. Two two. Three three three?"
	want, err := m.Segment(text)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Segment(text)
			if err != nil || len(got) != len(want) {
				errs <- "mismatched result"
				return
			}
			for j := range got {
				if got[j] != want[j] {
					errs <- "mismatched span"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("garbage payload should fail to decode")
	}
}
