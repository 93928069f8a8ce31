package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/sqlite"
)

// ChangeRequestRepository implements port.ChangeRequestRepository on SQLite.
// A partial unique index keeps at most one pending request per vendor.
type ChangeRequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewChangeRequestRepository creates a new change request repository
func NewChangeRequestRepository(db *sqlite.DB, logger *zap.Logger) *ChangeRequestRepository {
	return &ChangeRequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `id, change_type, vendor_id, proposed_data, prior_snapshot, status,
	requested_by, timestamp, decided_by, decided_at`

// Create inserts a request. A second pending request for the same vendor yields port.ErrStatusConflict.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *entity.VendorChangeRequest) error {
	proposed, prior, err := encodeFields(req)
	if err != nil {
		return err
	}

	query := `INSERT INTO vendor_change_requests (` + requestColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		req.ID,
		req.ChangeType,
		req.VendorID,
		proposed,
		prior,
		req.Status,
		req.RequestedBy,
		req.Timestamp.UTC(),
		nullString(req.DecidedBy),
		nullTime(req.DecidedAt),
	)
	if isUniqueViolation(err) {
		return port.ErrStatusConflict
	}
	if err != nil {
		r.logger.Error("Failed to create change request",
			zap.String("request_id", req.ID),
			zap.String("vendor_id", req.VendorID),
			zap.Error(err))
		return fmt.Errorf("failed to create change request: %w", err)
	}
	return nil
}

// GetByID returns a request or nil
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id string) (*entity.VendorChangeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM vendor_change_requests WHERE id = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get change request by ID", zap.String("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get change request: %w", err)
	}
	return req, nil
}

// Update writes the decision provided the stored status still equals expected
func (r *ChangeRequestRepository) Update(ctx context.Context, req *entity.VendorChangeRequest, expected entity.RequestStatus) error {
	proposed, prior, err := encodeFields(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE vendor_change_requests
		SET proposed_data = ?, prior_snapshot = ?, status = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		proposed,
		prior,
		req.Status,
		nullString(req.DecidedBy),
		nullTime(req.DecidedAt),
		req.ID,
		expected,
	)
	if err != nil {
		r.logger.Error("Failed to update change request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update change request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		current, err := r.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("change request %s not found", req.ID)
		}
		return port.ErrStatusConflict
	}
	return nil
}

// GetPendingByVendor returns the vendor's outstanding request, or nil
func (r *ChangeRequestRepository) GetPendingByVendor(ctx context.Context, vendorID string) (*entity.VendorChangeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM vendor_change_requests WHERE vendor_id = ? AND status = ?`

	req, err := scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, vendorID, entity.RequestPending))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending change request: %w", err)
	}
	return req, nil
}

// ListPending returns outstanding requests, oldest first
func (r *ChangeRequestRepository) ListPending(ctx context.Context) ([]*entity.VendorChangeRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM vendor_change_requests WHERE status = ? ORDER BY timestamp, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, entity.RequestPending)
	if err != nil {
		r.logger.Error("Failed to list pending change requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending change requests: %w", err)
	}
	defer rows.Close()

	var reqs []*entity.VendorChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func encodeFields(req *entity.VendorChangeRequest) (string, sql.NullString, error) {
	proposed, err := json.Marshal(req.ProposedData)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to encode proposed data: %w", err)
	}
	if req.PriorSnapshot == nil {
		return string(proposed), sql.NullString{}, nil
	}
	prior, err := json.Marshal(req.PriorSnapshot)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to encode prior snapshot: %w", err)
	}
	return string(proposed), sql.NullString{String: string(prior), Valid: true}, nil
}

func scanRequest(row rowScanner) (*entity.VendorChangeRequest, error) {
	var req entity.VendorChangeRequest
	var proposed string
	var prior, decidedBy sql.NullString
	var decidedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.ChangeType,
		&req.VendorID,
		&proposed,
		&prior,
		&req.Status,
		&req.RequestedBy,
		&req.Timestamp,
		&decidedBy,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(proposed), &req.ProposedData); err != nil {
		return nil, fmt.Errorf("failed to decode proposed data: %w", err)
	}
	if prior.Valid {
		var snapshot entity.VendorFields
		if err := json.Unmarshal([]byte(prior.String), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode prior snapshot: %w", err)
		}
		req.PriorSnapshot = &snapshot
	}
	req.Timestamp = req.Timestamp.UTC()
	req.DecidedBy = decidedBy.String
	req.DecidedAt = timePtr(decidedAt)
	return &req, nil
}

var _ port.ChangeRequestRepository = (*ChangeRequestRepository)(nil)
