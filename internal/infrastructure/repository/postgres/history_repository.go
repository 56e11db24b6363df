package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save is idempotent on id so redelivered events do not duplicate history.
func (r *HistoryRepository) Save(ctx context.Context, record *domain.HistoryRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO identification_history (
	id, user_id, common_name, scientific_name, description, probability, source, image_key, result, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`,
		record.ID, record.UserID, record.CommonName, record.ScientificName, record.Description,
		record.Probability, string(record.Source), record.ImageKey, resultJSON, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.HistoryRecord, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM identification_history WHERE user_id = $1
`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history records: %w", err)
	}
	if total == 0 {
		return []domain.HistoryRecord{}, 0, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, common_name, scientific_name, description, probability, source, image_key, result, created_at
FROM identification_history
WHERE user_id = $1
ORDER BY created_at DESC, id
OFFSET $2 LIMIT $3
`, userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query history records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		record, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history records: %w", err)
	}
	return records, total, nil
}

func (r *HistoryRepository) GetByID(ctx context.Context, userID, id string) (*domain.HistoryRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, common_name, scientific_name, description, probability, source, image_key, result, created_at
FROM identification_history
WHERE id = $1 AND user_id = $2
`, id, userID)

	record, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get history record", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*domain.HistoryRecord, error) {
	var record domain.HistoryRecord
	var source string
	var resultRaw []byte
	if err := row.Scan(
		&record.ID, &record.UserID, &record.CommonName, &record.ScientificName, &record.Description,
		&record.Probability, &source, &record.ImageKey, &resultRaw, &record.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan history record: %w", err)
	}
	if err := json.Unmarshal(resultRaw, &record.Result); err != nil {
		return nil, fmt.Errorf("unmarshal history result: %w", err)
	}
	record.Source = domain.ResultSource(source)
	return &record, nil
}
