package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/sqlite"
)

// ActorRepository implements port.ActorRepository over the users table.
// Capabilities are stored comma separated.
type ActorRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewActorRepository creates a new actor repository
func NewActorRepository(db *sqlite.DB, logger *zap.Logger) *ActorRepository {
	return &ActorRepository{
		db:     db,
		logger: logger,
	}
}

// GetActor returns the actor or nil for unknown ids
func (r *ActorRepository) GetActor(ctx context.Context, id string) (*entity.Actor, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, approver_id, capabilities FROM users WHERE id = ?`, id)

	actor, err := scanActor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return actor, nil
}

// Upsert inserts or replaces the actor's profile
func (r *ActorRepository) Upsert(ctx context.Context, actor *entity.Actor) error {
	caps := make([]string, 0, len(actor.Capabilities))
	for _, c := range actor.Capabilities {
		caps = append(caps, string(c))
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO users (id, name, approver_id, capabilities) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			approver_id = excluded.approver_id,
			capabilities = excluded.capabilities,
			updated_at = CURRENT_TIMESTAMP
	`, actor.ID, actor.Name, nullString(actor.ApproverID), strings.Join(caps, ","))
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.String("user_id", actor.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// List returns every actor ordered by id
func (r *ActorRepository) List(ctx context.Context) ([]*entity.Actor, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, name, approver_id, capabilities FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	actors := []*entity.Actor{}
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		actors = append(actors, actor)
	}
	return actors, rows.Err()
}

func scanActor(row rowScanner) (*entity.Actor, error) {
	var actor entity.Actor
	var approver sql.NullString
	var caps string
	if err := row.Scan(&actor.ID, &actor.Name, &approver, &caps); err != nil {
		return nil, err
	}
	actor.ApproverID = approver.String
	for _, c := range strings.Split(caps, ",") {
		if c = strings.TrimSpace(c); c != "" {
			actor.Capabilities = append(actor.Capabilities, entity.Capability(c))
		}
	}
	return &actor, nil
}

var _ port.ActorRepository = (*ActorRepository)(nil)
