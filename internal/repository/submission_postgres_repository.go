package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/observability"
)

type postgresSubmissionLog struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewPostgresSubmissionLog stores submissions as append-only rows.
func NewPostgresSubmissionLog(pool *pgxpool.Pool, logger *zap.Logger, metrics *observability.Metrics) SubmissionLog {
	return &postgresSubmissionLog{pool: pool, logger: logger, metrics: metrics}
}

func (r *postgresSubmissionLog) Append(ctx context.Context, s domain.Submission) error {
	const query = `
        INSERT INTO submissions (ticket, kind, fields, attachments, client_name, client_email, meta, ts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	fields, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	attachments := s.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	files, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query,
		s.Ticket,
		string(s.Kind),
		string(fields),
		string(files),
		s.ClientName,
		s.ClientEmail,
		string(meta),
		s.TS,
	); err != nil {
		return fmt.Errorf("insert submission %s: %w", s.Ticket, err)
	}
	return nil
}

func (r *postgresSubmissionLog) ReadAll(ctx context.Context) ([]domain.Submission, error) {
	const query = `
        SELECT seq, ticket, kind, fields::text, attachments::text, client_name, client_email, meta::text, ts
        FROM submissions ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var records []domain.Submission
	for rows.Next() {
		var (
			seq                  int64
			kind                 string
			fields, files, metas string
			rec                  domain.Submission
		)
		if err := rows.Scan(&seq, &rec.Ticket, &kind, &fields, &files, &rec.ClientName, &rec.ClientEmail, &metas, &rec.TS); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		rec.Kind = domain.Kind(kind)
		if err := decodeColumns(&rec, fields, files, metas); err != nil {
			r.metrics.Inc(observability.MetricCorruptLogRecord)
			r.logger.Warn("skipping corrupt submission row", zap.Int64("seq", seq), zap.String("ticket", rec.Ticket), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return Materialize(records), nil
}

func decodeColumns(rec *domain.Submission, fields, files, meta string) error {
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &rec.Attachments); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	return nil
}
