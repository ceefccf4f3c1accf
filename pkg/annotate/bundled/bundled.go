// Package bundled ships the default English models as YAML sources and
// serves them as compiled blobs.
package bundled

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/cognicore/annotate/pkg/annotate/model"
)

//go:embed models/*.yaml
var sources embed.FS

// Version is the version of every bundled model.
const Version = "1.2"

// Refs names the bundled English models.
func Refs() model.Refs {
	return model.Refs{
		Sentence: model.Ref{Name: "en-ud-ewt-sentence", Version: Version},
		Tokens:   model.Ref{Name: "en-ud-ewt-tokens", Version: Version},
		POS:      model.Ref{Name: "en-ud-ewt-pos", Version: Version},
		Lemmas:   model.Ref{Name: "en-ud-ewt-lemmas", Version: Version},
	}
}

// Locator serves the bundled models, compiling each source on Open.
type Locator struct{}

// Open implements model.Locator.
func (Locator) Open(ctx context.Context, ref model.Ref) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := Source(ref)
	if err != nil {
		return nil, err
	}
	blob, got, err := Compile(data)
	if err != nil {
		return nil, err
	}
	if got != ref {
		return nil, fmt.Errorf("bundled source %s declares %s", ref, got)
	}
	return io.NopCloser(bytes.NewReader(blob)), nil
}

// Source returns the YAML source of a bundled model.
func Source(ref model.Ref) ([]byte, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", fs.ErrNotExist, err)
	}
	return sources.ReadFile(path.Join("models", ref.String()+".yaml"))
}

// List returns the refs of every bundled model in pipeline order.
func List() []model.Ref {
	refs := make([]model.Ref, 0, len(model.Kinds))
	for _, kind := range model.Kinds {
		ref := Refs().For(kind)
		if _, err := fs.Stat(sources, path.Join("models", ref.String()+".yaml")); err == nil {
			refs = append(refs, ref)
		}
	}
	return refs
}
