package store

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/model"
)

// ErrDocNotFound is returned when a document ID is unknown.
var ErrDocNotFound = errors.New("document not found")

// Store persists annotated documents and model blobs. A Store is also a
// model.Locator over the blobs it holds.
type Store interface {
	Close() error

	// Docs
	SaveDoc(ctx context.Context, d Doc) (string, error)
	GetDoc(ctx context.Context, id string) (Doc, error)
	ListDocs(ctx context.Context, limit int) ([]DocSummary, error)

	// Models
	PutModel(ctx context.Context, ref model.Ref, kind model.Kind, blob []byte) error
	ListModels(ctx context.Context) ([]ModelInfo, error)
	model.Locator
}

// Doc is one annotated input as stored.
type Doc struct {
	ID        string
	Source    string // file name, "stdin" or "demo"
	Text      string
	CreatedAt time.Time
	Models    model.Refs
	Sentences []annotate.AnnotatedSentence
}

// Annotated returns the stored annotations as an AnnotatedText.
func (d Doc) Annotated() annotate.AnnotatedText {
	return annotate.AnnotatedText{Sentences: d.Sentences}
}

// DocSummary is a listing row for a stored document.
type DocSummary struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Sentences int
	Tokens    int
}

// ModelInfo describes a stored model blob.
type ModelInfo struct {
	Ref  model.Ref
	Kind model.Kind
	Size int
}

// IDs hands out monotonic ULIDs. It is safe for concurrent use.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates an ID generator.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a new ID for time t.
func (g *IDs) Next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
