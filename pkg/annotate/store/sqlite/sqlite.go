package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db  *sql.DB
	ids *store.IDs
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, ids: store.NewIDs()}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS docs (
	id TEXT PRIMARY KEY,
	source TEXT,
	body TEXT NOT NULL,
	created_at TEXT NOT NULL,
	models TEXT
);

CREATE TABLE IF NOT EXISTS sentences (
	doc_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	body TEXT NOT NULL,
	start_off INTEGER NOT NULL,
	end_off INTEGER NOT NULL,
	PRIMARY KEY(doc_id, idx),
	FOREIGN KEY(doc_id) REFERENCES docs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tokens (
	doc_id TEXT NOT NULL,
	sent_idx INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	token TEXT NOT NULL,
	tag TEXT NOT NULL,
	lemma TEXT NOT NULL,
	PRIMARY KEY(doc_id, sent_idx, idx),
	FOREIGN KEY(doc_id) REFERENCES docs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS models (
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	kind TEXT NOT NULL,
	blob BLOB NOT NULL,
	PRIMARY KEY(name, version)
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveDoc stores a document with its sentences and tokens, assigning an ID
// and creation time when missing. Saving an existing ID replaces it.
func (s *sqliteStore) SaveDoc(ctx context.Context, d store.Doc) (string, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.ID == "" {
		d.ID = s.ids.Next(d.CreatedAt)
	}
	models, err := json.Marshal(d.Models)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so children are cleared explicitly
	for _, q := range []string{
		`DELETE FROM tokens WHERE doc_id = ?`,
		`DELETE FROM sentences WHERE doc_id = ?`,
		`DELETE FROM docs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, d.ID); err != nil {
			return "", err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO docs (id, source, body, created_at, models) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Source, d.Text, d.CreatedAt.UTC().Format(time.RFC3339Nano), string(models))
	if err != nil {
		return "", err
	}

	sentStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sentences (doc_id, idx, body, start_off, end_off) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer sentStmt.Close()

	tokStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tokens (doc_id, sent_idx, idx, token, tag, lemma) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer tokStmt.Close()

	for i, sent := range d.Sentences {
		if !sent.Aligned() {
			return "", fmt.Errorf("sentence %d: %d tokens, %d tags, %d lemmas",
				i, len(sent.Tokens), len(sent.Tags), len(sent.Lemmas))
		}
		if _, err := sentStmt.ExecContext(ctx, d.ID, i, sent.Text, sent.Start, sent.End); err != nil {
			return "", err
		}
		for j, tok := range sent.Tokens {
			if _, err := tokStmt.ExecContext(ctx, d.ID, i, j, tok, sent.Tags[j], sent.Lemmas[j]); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return d.ID, nil
}

// GetDoc loads a document with its annotations.
func (s *sqliteStore) GetDoc(ctx context.Context, id string) (store.Doc, error) {
	var (
		d         store.Doc
		createdAt string
		models    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, body, created_at, models FROM docs WHERE id = ?`, id,
	).Scan(&d.ID, &d.Source, &d.Text, &createdAt, &models)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Doc{}, fmt.Errorf("%s: %w", id, store.ErrDocNotFound)
	}
	if err != nil {
		return store.Doc{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return store.Doc{}, fmt.Errorf("doc %s: created_at: %w", id, err)
	}
	if models.Valid && models.String != "" {
		if err := json.Unmarshal([]byte(models.String), &d.Models); err != nil {
			return store.Doc{}, fmt.Errorf("doc %s: models: %w", id, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body, start_off, end_off FROM sentences WHERE doc_id = ? ORDER BY idx`, id)
	if err != nil {
		return store.Doc{}, err
	}
	for rows.Next() {
		sent := annotate.AnnotatedSentence{Tokens: []string{}, Tags: []string{}, Lemmas: []string{}}
		if err := rows.Scan(&sent.Text, &sent.Start, &sent.End); err != nil {
			rows.Close()
			return store.Doc{}, err
		}
		d.Sentences = append(d.Sentences, sent)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.Doc{}, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT sent_idx, token, tag, lemma FROM tokens WHERE doc_id = ? ORDER BY sent_idx, idx`, id)
	if err != nil {
		return store.Doc{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			si              int
			tok, tag, lemma string
		)
		if err := rows.Scan(&si, &tok, &tag, &lemma); err != nil {
			return store.Doc{}, err
		}
		if si < 0 || si >= len(d.Sentences) {
			return store.Doc{}, fmt.Errorf("doc %s: token for unknown sentence %d", id, si)
		}
		sent := &d.Sentences[si]
		sent.Tokens = append(sent.Tokens, tok)
		sent.Tags = append(sent.Tags, tag)
		sent.Lemmas = append(sent.Lemmas, lemma)
	}
	return d, rows.Err()
}

// ListDocs returns up to limit documents, newest first. A limit of zero or
// less returns every document.
func (s *sqliteStore) ListDocs(ctx context.Context, limit int) ([]store.DocSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT d.id, d.source, d.created_at,
	(SELECT COUNT(*) FROM sentences s WHERE s.doc_id = d.id),
	(SELECT COUNT(*) FROM tokens t WHERE t.doc_id = d.id)
FROM docs d
ORDER BY d.id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DocSummary
	for rows.Next() {
		var (
			sum       store.DocSummary
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Source, &createdAt, &sum.Sentences, &sum.Tokens); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("doc %s: created_at: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// PutModel stores a model blob, replacing any blob with the same ref.
func (s *sqliteStore) PutModel(ctx context.Context, ref model.Ref, kind model.Kind, blob []byte) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	const stmt = `
INSERT INTO models (name, version, kind, blob) VALUES (?, ?, ?, ?)
ON CONFLICT(name, version) DO UPDATE SET kind=excluded.kind, blob=excluded.blob;
`
	_, err := s.db.ExecContext(ctx, stmt, ref.Name, ref.Version, string(kind), blob)
	return err
}

// ListModels returns the stored models sorted by ref.
func (s *sqliteStore) ListModels(ctx context.Context) ([]store.ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, kind, length(blob) FROM models ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ModelInfo
	for rows.Next() {
		var (
			info store.ModelInfo
			kind string
		)
		if err := rows.Scan(&info.Ref.Name, &info.Ref.Version, &kind, &info.Size); err != nil {
			return nil, err
		}
		info.Kind = model.Kind(kind)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Open implements model.Locator over the models table.
func (s *sqliteStore) Open(ctx context.Context, ref model.Ref) (io.ReadCloser, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM models WHERE name = ? AND version = ?`, ref.Name, ref.Version,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ref, fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(blob)), nil
}
