package commissionrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{db: db}
}

const configColumns = `id, course_id, trainer_id, percent, active, notes,
       created_by, updated_by, created_at, updated_at`

func scanConfig(row pgx.Row) (*domain.CommissionConfig, error) {
	var c domain.CommissionConfig
	err := row.Scan(&c.ID, &c.CourseID, &c.TrainerID, &c.Percent, &c.Active, &c.Notes,
		&c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *domain.CommissionConfig) (*domain.CommissionConfig, error) {
	query := `
        INSERT INTO commission_configs (course_id, trainer_id, percent, active, notes, created_by, updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        RETURNING ` + configColumns + `
	`
	created, err := scanConfig(r.db.QueryRow(ctx, query,
		c.CourseID, c.TrainerID, c.Percent, c.Active, c.Notes, c.CreatedBy))
	if err != nil {
		zap.L().Error("failed to create commission config", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*domain.CommissionConfig, error) {
	query := `
        SELECT ` + configColumns + `
        FROM commission_configs
        WHERE id = $1
    `
	cfg, err := scanConfig(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get commission config", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// GetActive returns the newest active configuration for the pair.
// A nil courseID selects the trainer's private-lesson rate.
func (r *Repository) GetActive(ctx context.Context, courseID *int, trainerID int) (*domain.CommissionConfig, error) {
	query := `
        SELECT ` + configColumns + `
        FROM commission_configs
        WHERE trainer_id = $2 AND active
          AND (course_id = $1 OR ($1::integer IS NULL AND course_id IS NULL))
        ORDER BY updated_at DESC
        LIMIT 1
    `
	cfg, err := scanConfig(r.db.QueryRow(ctx, query, courseID, trainerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get active commission config", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

func (r *Repository) ListActiveByCourse(ctx context.Context, courseID int) ([]domain.CommissionConfig, error) {
	query := `
        SELECT ` + configColumns + `
        FROM commission_configs
        WHERE course_id = $1 AND active
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		zap.L().Error("failed to list commission configs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var configs []domain.CommissionConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			zap.L().Error("failed to scan commission config row", zap.Error(err))
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (r *Repository) UpdatePercent(ctx context.Context, id, percent, updatedBy int) (*domain.CommissionConfig, error) {
	query := `
        UPDATE commission_configs
        SET percent = $1, updated_by = $2, updated_at = now()
        WHERE id = $3
        RETURNING ` + configColumns + `
	`
	cfg, err := scanConfig(r.db.QueryRow(ctx, query, percent, updatedBy, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to update commission config", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// Deactivate is a soft delete; the record is retained for audit.
func (r *Repository) Deactivate(ctx context.Context, id, updatedBy int) (*domain.CommissionConfig, error) {
	query := `
        UPDATE commission_configs
        SET active = FALSE, updated_by = $1, updated_at = now()
        WHERE id = $2
        RETURNING ` + configColumns + `
	`
	cfg, err := scanConfig(r.db.QueryRow(ctx, query, updatedBy, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to deactivate commission config", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
