package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/sqlite"
)

// ClaimRepository implements port.ClaimRepository on SQLite.
// Line items are rewritten on every save; history rows are insert-only.
type ClaimRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sqlite.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

const claimColumns = `id, kind, applicant_id, payee_name, payee_reference_id, amount, amount_override,
	status, payment_detail, no_receipt_reason, date_paid, created_at, updated_at`

// Create inserts a claim with its line items and history
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	detail, err := encodeDetail(claim.PaymentDetail)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `INSERT INTO claims (` + claimColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			claim.ID,
			claim.Kind,
			claim.ApplicantID,
			claim.PayeeName,
			nullString(claim.PayeeReferenceID),
			claim.Amount,
			claim.AmountOverride,
			claim.Status,
			detail,
			nullString(claim.NoReceiptReason),
			nullTime(claim.DatePaid),
			claim.CreatedAt.UTC(),
			claim.UpdatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create claim", zap.String("claim_id", claim.ID), zap.Error(err))
			return fmt.Errorf("failed to create claim: %w", err)
		}

		if err := r.writeLineItems(txCtx, claim); err != nil {
			return err
		}
		return r.appendHistory(txCtx, claim.ID, claim.History)
	})
}

// GetByID returns the claim with line items and history, or nil when it does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.String("claim_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if err := r.loadChildren(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// Save writes the claim provided its stored status still equals expected
func (r *ClaimRepository) Save(ctx context.Context, claim *entity.Claim, expected workflow.State) error {
	detail, err := encodeDetail(claim.PaymentDetail)
	if err != nil {
		return err
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE claims
			SET kind = ?, payee_name = ?, payee_reference_id = ?, amount = ?, amount_override = ?,
				status = ?, payment_detail = ?, no_receipt_reason = ?, date_paid = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`
		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			claim.Kind,
			claim.PayeeName,
			nullString(claim.PayeeReferenceID),
			claim.Amount,
			claim.AmountOverride,
			claim.Status,
			detail,
			nullString(claim.NoReceiptReason),
			nullTime(claim.DatePaid),
			claim.UpdatedAt.UTC(),
			claim.ID,
			expected,
		)
		if err != nil {
			r.logger.Error("Failed to save claim", zap.String("claim_id", claim.ID), zap.Error(err))
			return fmt.Errorf("failed to save claim: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			exists, err := r.exists(txCtx, claim.ID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("claim %s not found", claim.ID)
			}
			return port.ErrStatusConflict
		}

		if err := r.writeLineItems(txCtx, claim); err != nil {
			return err
		}
		return r.appendHistory(txCtx, claim.ID, claim.History)
	})
}

// Delete removes a claim and its dependent rows
func (r *ClaimRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)
		for _, query := range []string{
			`DELETE FROM claim_line_items WHERE claim_id = ?`,
			`DELETE FROM claim_history WHERE claim_id = ?`,
			`DELETE FROM claims WHERE id = ?`,
		} {
			if _, err := exec.ExecContext(txCtx, query, id); err != nil {
				r.logger.Error("Failed to delete claim", zap.String("claim_id", id), zap.Error(err))
				return fmt.Errorf("failed to delete claim: %w", err)
			}
		}
		return nil
	})
}

// ListByStatus returns claims in status, or all claims when status is empty, oldest first
func (r *ClaimRepository) ListByStatus(ctx context.Context, status workflow.State) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.String("status", string(status)), zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, claim := range claims {
		if err := r.loadChildren(ctx, claim); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

func (r *ClaimRepository) exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.Executor(ctx).QueryRowContext(ctx, `SELECT 1 FROM claims WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check claim: %w", err)
	}
	return true, nil
}

func (r *ClaimRepository) writeLineItems(ctx context.Context, claim *entity.Claim) error {
	exec := r.db.Executor(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM claim_line_items WHERE claim_id = ?`, claim.ID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}

	query := `
		INSERT INTO claim_line_items (
			claim_id, position, id, item_date, amount, description,
			category, invoice_ref, no_receipt, attachment_ref
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, li := range claim.LineItems {
		date := li.Date
		_, err := exec.ExecContext(ctx, query,
			claim.ID,
			i,
			li.ID,
			nullTime(&date),
			li.Amount,
			li.Description,
			nullString(li.Category),
			nullString(li.InvoiceRef),
			li.NoReceipt,
			nullString(li.AttachmentRef),
		)
		if err != nil {
			r.logger.Error("Failed to write line item",
				zap.String("claim_id", claim.ID),
				zap.String("line_item_id", li.ID),
				zap.Error(err))
			return fmt.Errorf("failed to write line item: %w", err)
		}
	}
	return nil
}

// appendHistory inserts entries not yet stored. Stored rows are never rewritten.
func (r *ClaimRepository) appendHistory(ctx context.Context, claimID string, history []entity.HistoryEntry) error {
	query := `
		INSERT OR IGNORE INTO claim_history (claim_id, seq, timestamp, actor_id, actor_name, action, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	exec := r.db.Executor(ctx)
	for _, h := range history {
		_, err := exec.ExecContext(ctx, query,
			claimID,
			h.Seq,
			h.Timestamp.UTC(),
			h.ActorID,
			h.ActorName,
			h.Action,
			nullString(h.Note),
		)
		if err != nil {
			r.logger.Error("Failed to append history",
				zap.String("claim_id", claimID),
				zap.Int("seq", h.Seq),
				zap.Error(err))
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

func (r *ClaimRepository) loadChildren(ctx context.Context, claim *entity.Claim) error {
	exec := r.db.Executor(ctx)

	rows, err := exec.QueryContext(ctx, `
		SELECT id, item_date, amount, description, category, invoice_ref, no_receipt, attachment_ref
		FROM claim_line_items WHERE claim_id = ? ORDER BY position
	`, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to load line items: %w", err)
	}
	for rows.Next() {
		var li entity.LineItem
		var date sql.NullTime
		var category, invoiceRef, attachmentRef sql.NullString
		if err := rows.Scan(&li.ID, &date, &li.Amount, &li.Description, &category, &invoiceRef, &li.NoReceipt, &attachmentRef); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan line item: %w", err)
		}
		if date.Valid {
			li.Date = date.Time.UTC()
		}
		li.Category = category.String
		li.InvoiceRef = invoiceRef.String
		li.AttachmentRef = attachmentRef.String
		claim.LineItems = append(claim.LineItems, li)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	rows, err = exec.QueryContext(ctx, `
		SELECT seq, timestamp, actor_id, actor_name, action, note
		FROM claim_history WHERE claim_id = ? ORDER BY seq
	`, claim.ID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h entity.HistoryEntry
		var note sql.NullString
		if err := rows.Scan(&h.Seq, &h.Timestamp, &h.ActorID, &h.ActorName, &h.Action, &note); err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.Timestamp = h.Timestamp.UTC()
		h.Note = note.String
		claim.History = append(claim.History, h)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entity.Claim, error) {
	var claim entity.Claim
	var payeeRef, detail, noReceiptReason sql.NullString
	var datePaid sql.NullTime

	err := row.Scan(
		&claim.ID,
		&claim.Kind,
		&claim.ApplicantID,
		&claim.PayeeName,
		&payeeRef,
		&claim.Amount,
		&claim.AmountOverride,
		&claim.Status,
		&detail,
		&noReceiptReason,
		&datePaid,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	claim.PayeeReferenceID = payeeRef.String
	claim.NoReceiptReason = noReceiptReason.String
	claim.DatePaid = timePtr(datePaid)
	claim.CreatedAt = claim.CreatedAt.UTC()
	claim.UpdatedAt = claim.UpdatedAt.UTC()
	if detail.Valid {
		var pd entity.PaymentDetail
		if err := json.Unmarshal([]byte(detail.String), &pd); err != nil {
			return nil, fmt.Errorf("failed to decode payment detail: %w", err)
		}
		claim.PaymentDetail = &pd
	}
	return &claim, nil
}

func encodeDetail(pd *entity.PaymentDetail) (sql.NullString, error) {
	if pd == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(pd)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode payment detail: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
