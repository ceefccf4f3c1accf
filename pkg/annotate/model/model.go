package model

import (
	"fmt"
	"strings"
)

// Kind identifies the stage a model serves. Models of different kinds are
// never interchangeable.
type Kind string

const (
	KindSentence Kind = "sentence"
	KindTokens   Kind = "tokens"
	KindPOS      Kind = "pos"
	KindLemmas   Kind = "lemmas"
)

// Kinds lists every stage kind in pipeline order.
var Kinds = []Kind{KindSentence, KindTokens, KindPOS, KindLemmas}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Ref is the logical identifier of a model resource.
type Ref struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// String returns "name-version", the form used for file names and logs.
func (r Ref) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + "-" + r.Version
}

// FileName returns the blob file name for the ref.
func (r Ref) FileName() string {
	return r.String() + ".bin"
}

// Validate checks that both name and version are usable as a file name.
func (r Ref) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("model ref: empty name")
	}
	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("model ref %q: empty version", r.Name)
	}
	if strings.ContainsAny(r.String(), `/\`) {
		return fmt.Errorf("model ref %q: contains path separator", r.String())
	}
	return nil
}

// Refs names the four models a pipeline is built from.
type Refs struct {
	Sentence Ref `yaml:"sentence"`
	Tokens   Ref `yaml:"tokens"`
	POS      Ref `yaml:"pos"`
	Lemmas   Ref `yaml:"lemmas"`
}

// For returns the ref configured for kind.
func (r Refs) For(kind Kind) Ref {
	switch kind {
	case KindSentence:
		return r.Sentence
	case KindTokens:
		return r.Tokens
	case KindPOS:
		return r.POS
	case KindLemmas:
		return r.Lemmas
	}
	return Ref{}
}

// Validate checks every ref.
func (r Refs) Validate() error {
	for _, kind := range Kinds {
		if err := r.For(kind).Validate(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}
