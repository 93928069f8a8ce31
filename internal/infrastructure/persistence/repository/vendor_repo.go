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

// VendorRepository implements port.VendorRepository on SQLite
type VendorRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sqlite.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

const vendorColumns = `id, name, service_description, bank_code, bank_account, is_floating_account,
	status, created_at, updated_at`

// Create inserts a vendor
func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	query := `INSERT INTO vendors (` + vendorColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		v.ID,
		v.Name,
		v.ServiceDescription,
		nullString(v.BankCode),
		nullString(v.BankAccount),
		v.IsFloatingAccount,
		v.Status,
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create vendor", zap.String("vendor_id", v.ID), zap.Error(err))
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// GetByID returns a vendor, deleted ones included, or nil
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = ?`

	v, err := scanVendor(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vendor by ID", zap.String("vendor_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return v, nil
}

// Update overwrites every field of an existing vendor
func (r *VendorRepository) Update(ctx context.Context, v *entity.Vendor) error {
	query := `
		UPDATE vendors
		SET name = ?, service_description = ?, bank_code = ?, bank_account = ?,
			is_floating_account = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		v.Name,
		v.ServiceDescription,
		nullString(v.BankCode),
		nullString(v.BankAccount),
		v.IsFloatingAccount,
		v.Status,
		v.UpdatedAt.UTC(),
		v.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update vendor", zap.String("vendor_id", v.ID), zap.Error(err))
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("vendor %s not found", v.ID)
	}
	return nil
}

// List returns every vendor ordered by name
func (r *VendorRepository) List(ctx context.Context) ([]*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors ORDER BY name, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list vendors", zap.Error(err))
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []*entity.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func scanVendor(row rowScanner) (*entity.Vendor, error) {
	var v entity.Vendor
	var bankCode, bankAccount sql.NullString
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.ServiceDescription,
		&bankCode,
		&bankAccount,
		&v.IsFloatingAccount,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.BankCode = bankCode.String
	v.BankAccount = bankAccount.String
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

var _ port.VendorRepository = (*VendorRepository)(nil)
