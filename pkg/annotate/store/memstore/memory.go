package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/store"
)

// Store is an in-memory implementation of store.Store. Nothing survives
// the process.
type Store struct {
	mu     sync.RWMutex
	ids    *store.IDs
	now    func() time.Time
	docs   map[string]store.Doc
	models map[model.Ref]storedModel
}

type storedModel struct {
	kind model.Kind
	blob []byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		ids:    store.NewIDs(),
		now:    time.Now,
		docs:   make(map[string]store.Doc),
		models: make(map[model.Ref]storedModel),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveDoc stores d, assigning an ID and creation time when missing.
func (s *Store) SaveDoc(ctx context.Context, d store.Doc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	if d.ID == "" {
		d.ID = s.ids.Next(d.CreatedAt)
	}
	s.docs[d.ID] = copyDoc(d)
	return d.ID, nil
}

// GetDoc returns a document by ID.
func (s *Store) GetDoc(ctx context.Context, id string) (store.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.docs[id]; ok {
		return copyDoc(d), nil
	}
	return store.Doc{}, fmt.Errorf("%s: %w", id, store.ErrDocNotFound)
}

// ListDocs returns up to limit documents, newest first.
func (s *Store) ListDocs(ctx context.Context, limit int) ([]store.DocSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.DocSummary, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, store.DocSummary{
			ID:        d.ID,
			Source:    d.Source,
			CreatedAt: d.CreatedAt,
			Sentences: len(d.Sentences),
			Tokens:    d.Annotated().TokenCount(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutModel stores a model blob, replacing any blob with the same ref.
func (s *Store) PutModel(ctx context.Context, ref model.Ref, kind model.Kind, blob []byte) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[ref] = storedModel{kind: kind, blob: append([]byte(nil), blob...)}
	return nil
}

// ListModels returns the stored models sorted by ref.
func (s *Store) ListModels(ctx context.Context) ([]store.ModelInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.ModelInfo, 0, len(s.models))
	for ref, m := range s.models {
		out = append(out, store.ModelInfo{Ref: ref, Kind: m.kind, Size: len(m.blob)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.String() < out[j].Ref.String() })
	return out, nil
}

// Open implements model.Locator.
func (s *Store) Open(ctx context.Context, ref model.Ref) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(m.blob)), nil
}

func copyDoc(d store.Doc) store.Doc {
	out := d
	out.Sentences = make([]annotate.AnnotatedSentence, len(d.Sentences))
	for i, s := range d.Sentences {
		s.Tokens = slices.Clone(s.Tokens)
		s.Tags = slices.Clone(s.Tags)
		s.Lemmas = slices.Clone(s.Lemmas)
		out.Sentences[i] = s
	}
	return out
}
