package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/infrastructure/persistence/sqlite"
)

// PaymentRepository implements port.PaymentRepository on SQLite
type PaymentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlite.DB, logger *zap.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payment and its items
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)
		_, err := exec.ExecContext(txCtx, `
			INSERT INTO payments (id, payee, payment_date, amount, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			payment.ID,
			payment.Payee,
			payment.PaymentDate.UTC(),
			payment.Amount,
			payment.CreatedBy,
			payment.CreatedAt.UTC(),
		)
		if err != nil {
			r.logger.Error("Failed to create payment", zap.String("payment_id", payment.ID), zap.Error(err))
			return fmt.Errorf("failed to create payment: %w", err)
		}

		for i, item := range payment.Items {
			_, err := exec.ExecContext(txCtx, `
				INSERT INTO payment_items (payment_id, position, claim_id, amount, result_status, history_seq)
				VALUES (?, ?, ?, ?, ?, ?)
			`, payment.ID, i, item.ClaimID, item.Amount, item.ResultStatus, item.HistorySeq)
			if err != nil {
				r.logger.Error("Failed to create payment item",
					zap.String("payment_id", payment.ID),
					zap.String("claim_id", item.ClaimID),
					zap.Error(err))
				return fmt.Errorf("failed to create payment item: %w", err)
			}
		}
		return nil
	})
}

// GetByID returns the payment with items, or nil when it does not exist
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, payee, payment_date, amount, created_by, created_at FROM payments WHERE id = ?
	`, id)

	payment, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payment by ID", zap.String("payment_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if err := r.loadItems(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Delete removes a payment and its items
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := r.db.Executor(txCtx)
		if _, err := exec.ExecContext(txCtx, `DELETE FROM payment_items WHERE payment_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete payment items: %w", err)
		}
		if _, err := exec.ExecContext(txCtx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			r.logger.Error("Failed to delete payment", zap.String("payment_id", id), zap.Error(err))
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return nil
	})
}

// List returns every payment, oldest first
func (r *PaymentRepository) List(ctx context.Context) ([]*entity.Payment, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT id, payee, payment_date, amount, created_by, created_at FROM payments ORDER BY created_at, id
	`)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := []*entity.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, payment := range payments {
		if err := r.loadItems(ctx, payment); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

func (r *PaymentRepository) loadItems(ctx context.Context, payment *entity.Payment) error {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT claim_id, amount, result_status, history_seq FROM payment_items WHERE payment_id = ? ORDER BY position
	`, payment.ID)
	if err != nil {
		return fmt.Errorf("failed to load payment items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.PaymentItem
		if err := rows.Scan(&item.ClaimID, &item.Amount, &item.ResultStatus, &item.HistorySeq); err != nil {
			return fmt.Errorf("failed to scan payment item: %w", err)
		}
		payment.Items = append(payment.Items, item)
	}
	return rows.Err()
}

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var p entity.Payment
	if err := row.Scan(&p.ID, &p.Payee, &p.PaymentDate, &p.Amount, &p.CreatedBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PaymentDate = p.PaymentDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

var _ port.PaymentRepository = (*PaymentRepository)(nil)
