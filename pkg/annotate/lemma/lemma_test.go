package lemma

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/annotate/pkg/annotate/annoterr"
	"github.com/cognicore/annotate/pkg/annotate/model"
)

func testSource() Source {
	return Source{
		Keep: []string{"PROPN", "PUNCT"},
		Exceptions: map[string]map[string]string{
			AnyTag: {"n't": "not"},
			"VERB": {"saw": "see", "are": "be"},
			"AUX":  {"are": "be"},
			"PRON": {"i": "I", "me": "I"},
		},
		Rules: map[string][]Rule{
			"NOUN": {
				{Suffix: "s", Replace: "", MinStem: 2},
				{Suffix: "ies", Replace: "y", MinStem: 2},
			},
			"VERB": {
				{Suffix: "ing", Replace: "", MinStem: 2},
				{Suffix: "es", Replace: "e", MinStem: 3},
			},
		},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(testSource())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestLemmatize(t *testing.T) {
	m := newTestModel(t)

	tokens := []string{"I", "saw", "the", "saw", "in", "Paris", "cities", "Cats", "is", "doing", "provides", "n't", "."}
	tags := []string{"PRON", "VERB", "DET", "NOUN", "ADP", "PROPN", "NOUN", "NOUN", "NOUN", "VERB", "VERB", "PART", "PUNCT"}
	want := []string{"I", "see", "the", "saw", "in", "Paris", "city", "cat", "is", "do", "provide", "not", "."}

	got, err := m.Lemmatize(tokens, tags)
	if err != nil {
		t.Fatalf("Lemmatize: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Lemmatize =\n %q\nwant\n %q", got, want)
	}
}

func TestLemmatizeTagDisambiguates(t *testing.T) {
	m := newTestModel(t)

	verb, _ := m.Lemmatize([]string{"saw"}, []string{"VERB"})
	noun, _ := m.Lemmatize([]string{"saw"}, []string{"NOUN"})
	if verb[0] != "see" || noun[0] != "saw" {
		t.Errorf("saw/VERB = %q, saw/NOUN = %q", verb[0], noun[0])
	}
}

func TestLemmatizeLengthMismatch(t *testing.T) {
	m := newTestModel(t)

	got, err := m.Lemmatize([]string{"a", "b", "c"}, []string{"DET", "NOUN"})
	if got != nil {
		t.Errorf("mismatch should produce no output, got %q", got)
	}
	if !errors.Is(err, annoterr.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	var inv *annoterr.InvalidInputError
	if !errors.As(err, &inv) || inv.Op != "lemmatize" {
		t.Errorf("want *InvalidInputError for lemmatize, got %#v", err)
	}
}

func TestLemmatizeEmpty(t *testing.T) {
	m := newTestModel(t)
	got, err := m.Lemmatize([]string{}, []string{})
	if err != nil || len(got) != 0 {
		t.Errorf("Lemmatize(empty) = %q, %v", got, err)
	}
}

func TestNewRejectsBadSource(t *testing.T) {
	src := testSource()
	src.Rules["ADJ"] = []Rule{{Suffix: ""}}
	if _, err := New(src); err == nil {
		t.Error("empty suffix should fail")
	}

	src = testSource()
	src.Exceptions["VERB"]["SAW"] = "saw"
	if _, err := New(src); err == nil {
		t.Error("conflicting folded exceptions should fail")
	}
}

func TestCompileDecode(t *testing.T) {
	ref := model.Ref{Name: "en-lemma", Version: "1.0"}
	blob, err := Compile(ref, testSource())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	payload, err := model.Unwrap(blob, ref, model.KindLemmas)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	m, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := m.Lemmatize([]string{"are"}, []string{"AUX"})
	if err != nil || got[0] != "be" {
		t.Errorf("are/AUX = %q, %v", got, err)
	}
}
