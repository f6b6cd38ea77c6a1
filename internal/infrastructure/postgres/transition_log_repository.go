package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
)

var _ repository.TransitionLogRepository = (*TransitionLogRepo)(nil)

const transitionLogSchema = `
	CREATE TABLE IF NOT EXISTS pipeline_transition_log (
		id          UUID PRIMARY KEY,
		batch_id    UUID NOT NULL,
		item_id     TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		from_stage  TEXT NOT NULL,
		to_stage    TEXT NOT NULL,
		reason      TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL,
		actor       TEXT NOT NULL,
		actor_role  TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pipeline_transition_log_occurred_at
		ON pipeline_transition_log (occurred_at DESC);`

// TransitionLogRepo implementación de TransitionLogRepository sobre PostgreSQL.
type TransitionLogRepo struct {
	q  Querier
	tx *TxRunner
}

// NewTransitionLogRepository construye el adaptador.
func NewTransitionLogRepository(pool *pgxpool.Pool) *TransitionLogRepo {
	return &TransitionLogRepo{q: pool, tx: NewTxRunner(pool)}
}

// EnsureSchema crea la tabla del diario si no existe.
func (r *TransitionLogRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, transitionLogSchema); err != nil {
		return fmt.Errorf("crear pipeline_transition_log: %w", err)
	}
	return nil
}

// InsertBatch guarda las transiciones de un lote en una sola transacción.
func (r *TransitionLogRepo) InsertBatch(ctx context.Context, records []entity.TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `
		INSERT INTO pipeline_transition_log
			(id, batch_id, item_id, entity_type, entity_id, from_stage, to_stage, reason, source, actor, actor_role, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	err := r.tx.Run(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(query,
				rec.ID, rec.BatchID, rec.ItemID, rec.EntityType, rec.EntityID,
				rec.FromStage, rec.ToStage, rec.Reason, rec.Source, rec.Actor, rec.ActorRole, rec.OccurredAt,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: transición ya registrada", domain.ErrConflict)
	case isUndefinedTable(err):
		return fmt.Errorf("insert transition log (¿falta EnsureSchema?): %w", err)
	default:
		return fmt.Errorf("insert transition log: %w", err)
	}
}

// ListRecent devuelve las últimas transiciones, la más reciente primero.
func (r *TransitionLogRepo) ListRecent(ctx context.Context, limit int) ([]entity.TransitionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id::text, batch_id::text, item_id, entity_type, entity_id, from_stage, to_stage,
		       reason, source, actor, actor_role, occurred_at
		FROM pipeline_transition_log
		ORDER BY occurred_at DESC, id
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transition log: %w", err)
	}
	defer rows.Close()

	out := make([]entity.TransitionRecord, 0, limit)
	for rows.Next() {
		var rec entity.TransitionRecord
		if err := rows.Scan(
			&rec.ID, &rec.BatchID, &rec.ItemID, &rec.EntityType, &rec.EntityID, &rec.FromStage, &rec.ToStage,
			&rec.Reason, &rec.Source, &rec.Actor, &rec.ActorRole, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan transition log: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transition log: %w", err)
	}
	return out, nil
}
