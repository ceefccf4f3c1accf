package bundled

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/annotate/pkg/annotate/lemma"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/postag"
	"github.com/cognicore/annotate/pkg/annotate/segment"
	"github.com/cognicore/annotate/pkg/annotate/tokenize"
)

// header is the common preamble of a model source document.
type header struct {
	Kind    model.Kind `yaml:"kind"`
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
}

// Compile turns a YAML model source document into a model blob.
//
// Expected format:
//
//	kind: pos
//	name: en-ud-ewt-pos
//	version: "1.2"
//	source:
//	  ...stage specific fields...
func Compile(data []byte) ([]byte, model.Ref, error) {
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, model.Ref{}, fmt.Errorf("parse model source: %w", err)
	}
	ref := model.Ref{Name: h.Name, Version: h.Version}
	if err := ref.Validate(); err != nil {
		return nil, ref, err
	}

	var blob []byte
	var err error
	switch h.Kind {
	case model.KindSentence:
		var doc struct {
			Source segment.Source `yaml:"source"`
		}
		if err = yaml.Unmarshal(data, &doc); err == nil {
			blob, err = segment.Compile(ref, doc.Source)
		}
	case model.KindTokens:
		var doc struct {
			Source tokenize.Source `yaml:"source"`
		}
		if err = yaml.Unmarshal(data, &doc); err == nil {
			blob, err = tokenize.Compile(ref, doc.Source)
		}
	case model.KindPOS:
		var doc struct {
			Source postag.Source `yaml:"source"`
		}
		if err = yaml.Unmarshal(data, &doc); err == nil {
			blob, err = postag.Compile(ref, doc.Source)
		}
	case model.KindLemmas:
		var doc struct {
			Source lemma.Source `yaml:"source"`
		}
		if err = yaml.Unmarshal(data, &doc); err == nil {
			blob, err = lemma.Compile(ref, doc.Source)
		}
	default:
		return nil, ref, fmt.Errorf("model source %s: unknown kind %q", ref, h.Kind)
	}
	if err != nil {
		return nil, ref, fmt.Errorf("model source %s: %w", ref, err)
	}
	return blob, ref, nil
}
