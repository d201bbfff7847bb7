package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// PrivacyViolationRepository persists leak-guard audit records.
type PrivacyViolationRepository struct {
	pool *pgxpool.Pool
}

func NewPrivacyViolationRepository(pool *pgxpool.Pool) *PrivacyViolationRepository {
	return &PrivacyViolationRepository{pool: pool}
}

// SaveViolation inserts one violation report.
func (r *PrivacyViolationRepository) SaveViolation(ctx context.Context, report *domain.PrivacyViolationReport) error {
	if err := domain.ValidateViolationReport(report); err != nil {
		return err
	}
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO privacy_violations (id, query_id, chatbot_id, source_chunk_id, leaked_fragment, action, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID,
		report.QueryID,
		report.ChatbotID,
		report.SourceChunkID,
		report.LeakedFragment,
		string(report.Action),
		createdAt,
	)
	return err
}

// ListByChatbot returns a chatbot's violation reports, newest first.
func (r *PrivacyViolationRepository) ListByChatbot(ctx context.Context, chatbotID string, limit int) ([]domain.PrivacyViolationReport, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, query_id, chatbot_id, source_chunk_id, leaked_fragment, action, created_at
		 FROM privacy_violations
		 WHERE chatbot_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		chatbotID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.PrivacyViolationReport
	for rows.Next() {
		var report domain.PrivacyViolationReport
		var action string
		if err := rows.Scan(&report.ID, &report.QueryID, &report.ChatbotID, &report.SourceChunkID, &report.LeakedFragment, &action, &report.CreatedAt); err != nil {
			return nil, err
		}
		report.Action = domain.ViolationAction(action)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
