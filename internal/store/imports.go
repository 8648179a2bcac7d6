package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pavelanni/provas/internal/model"
)

// SaveImport inserts the questions read from an import file together with
// the record of the file, in one transaction. It returns the record's ID.
func (s *Store) SaveImport(ctx context.Context, questions []model.Question, rec model.ImportRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := timestamp()
	for _, q := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (statement, topic, type, difficulty, answer_key, source, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.Statement, q.Topic, q.Type, q.Difficulty, q.AnswerKey, q.Source, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert question: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (file, hash, inserted, skipped, imported_at) VALUES (?, ?, ?, ?, ?)`,
		rec.File, rec.Hash, rec.Inserted, rec.Skipped, now,
	)
	if err != nil {
		return 0, fmt.Errorf("record import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// FindImportByHash returns the most recent import with this content hash.
// Returns nil and nil error if the hash was never imported.
func (s *Store) FindImportByHash(ctx context.Context, hash string) (*model.ImportRecord, error) {
	var rec model.ImportRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file, hash, inserted, skipped, imported_at
		 FROM imports WHERE hash = ? ORDER BY id DESC LIMIT 1`, hash,
	).Scan(&rec.ID, &rec.File, &rec.Hash, &rec.Inserted, &rec.Skipped, &rec.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListImports returns all recorded imports, newest first.
func (s *Store) ListImports(ctx context.Context) ([]model.ImportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, hash, inserted, skipped, imported_at FROM imports ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.ImportRecord
	for rows.Next() {
		var rec model.ImportRecord
		if err := rows.Scan(&rec.ID, &rec.File, &rec.Hash, &rec.Inserted, &rec.Skipped, &rec.ImportedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
