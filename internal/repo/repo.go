package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"chessreg/internal/model"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrTableMissing maps Postgres 42P01 so callers can tell a missing
	// schema apart from an ordinary store failure.
	ErrTableMissing = errors.New("registrations table does not exist")
)

type Repository interface {
	Insert(ctx context.Context, reg *model.Registration) (string, error)
	GetAll(ctx context.Context) ([]model.Registration, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	UpdatePaymentStatusTx(ctx context.Context, id, newStatus string) error
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

// Insert stores a new registration and returns the id assigned here, at the
// persistence layer.
func (r *repository) Insert(ctx context.Context, reg *model.Registration) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO registrations (id, full_name, name_with_initials, fide_id, date_of_birth,
		                           gender, contact_number, age_category, payment_status,
		                           reference_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var fideID any
	if reg.FideID != "" {
		fideID = reg.FideID
	}
	_, err := r.db.ExecContext(ctx, query,
		id, reg.FullName, reg.NameWithInitials, fideID, reg.DateOfBirth,
		reg.Gender, reg.ContactNumber, reg.AgeCategory, reg.PaymentStatus,
		reg.ReferenceNumber, reg.CreatedAt,
	)
	if err != nil {
		return "", wrapPgError("failed to insert registration", err)
	}

	reg.ID = id
	return id, nil
}

func (r *repository) GetAll(ctx context.Context) ([]model.Registration, error) {
	query := `
		SELECT id, full_name, name_with_initials, fide_id, date_of_birth,
		       gender, contact_number, age_category, payment_status,
		       reference_number, created_at
		FROM registrations
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapPgError("failed to get registrations", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}

	return regs, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	query := `
		SELECT id, full_name, name_with_initials, fide_id, date_of_birth,
		       gender, contact_number, age_category, payment_status,
		       reference_number, created_at
		FROM registrations
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	reg, err := scanRegistration(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, wrapPgError("failed to get registration", err)
	}
	return reg, nil
}

// UpdatePaymentStatusTx changes the payment status of exactly one record.
// payment_status is the only column this system ever mutates.
func (r *repository) UpdatePaymentStatusTx(ctx context.Context, id, newStatus string) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := `
		UPDATE registrations
		SET payment_status = $1
		WHERE id = $2
		RETURNING id
	`

	var updated string
	if err := tx.QueryRowContext(ctx, query, newStatus, id).Scan(&updated); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return wrapPgError("failed to update payment status", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanRegistration(scan func(dest ...any) error) (*model.Registration, error) {
	var reg model.Registration
	var fideID sql.NullString
	if err := scan(
		&reg.ID,
		&reg.FullName,
		&reg.NameWithInitials,
		&fideID,
		&reg.DateOfBirth,
		&reg.Gender,
		&reg.ContactNumber,
		&reg.AgeCategory,
		&reg.PaymentStatus,
		&reg.ReferenceNumber,
		&reg.CreatedAt,
	); err != nil {
		return nil, err
	}
	reg.FideID = fideID.String
	return &reg, nil
}

func wrapPgError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return fmt.Errorf("%s: %w", msg, ErrTableMissing)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
