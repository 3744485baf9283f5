package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// DocumentStore keeps profile documents in a JSONB column. Merge uses the
// jsonb concatenation operator so a single UPDATE applies all fields.
type DocumentStore struct {
	pool *pgxpool.Pool
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

func (s *DocumentStore) Get(ctx context.Context, key string) (repository.Document, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM profile_documents WHERE id = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	doc := repository.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *DocumentStore) Create(ctx context.Context, key string, fields repository.Document) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.pool.Exec(ctx, `
		INSERT INTO profile_documents (id, doc)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO NOTHING
	`, key, string(b))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrDocumentExists
	}
	return nil
}

func (s *DocumentStore) Merge(ctx context.Context, key string, fields repository.Document) error {
	if len(fields) == 0 {
		return nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.pool.Exec(ctx, `
		UPDATE profile_documents
		SET doc = doc || $2::jsonb, updated_at = now()
		WHERE id = $1
	`, key, string(b))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrDocumentNotFound
	}
	return nil
}

var _ repository.DocumentStore = (*DocumentStore)(nil)
