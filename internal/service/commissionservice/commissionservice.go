package commissionservice

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dancelink/settled/internal/domain"
)

//go:generate mockgen -source=commissionservice.go -destination=mock_commissionservice.go -package=commissionservice

type Repo interface {
	Create(ctx context.Context, c *domain.CommissionConfig) (*domain.CommissionConfig, error)
	GetByID(ctx context.Context, id int) (*domain.CommissionConfig, error)
	GetActive(ctx context.Context, courseID *int, trainerID int) (*domain.CommissionConfig, error)
	ListActiveByCourse(ctx context.Context, courseID int) ([]domain.CommissionConfig, error)
	UpdatePercent(ctx context.Context, id, percent, updatedBy int) (*domain.CommissionConfig, error)
	Deactivate(ctx context.Context, id, updatedBy int) (*domain.CommissionConfig, error)
}

// Split divides a coin sale between trainer and platform. Integer
// division with the remainder assigned to the platform, never the
// trainer, so the two shares always sum exactly to the input.
func Split(saleAmount int64, percent int) (trainerShare, platformShare int64, err error) {
	if percent < 0 || percent > 100 {
		return 0, 0, fmt.Errorf("percent %d: %w", percent, domain.ErrInvalidConfiguration)
	}
	if saleAmount < 0 {
		return 0, 0, fmt.Errorf("sale amount %d: %w", saleAmount, domain.ErrInvalidAmount)
	}
	trainerShare = saleAmount * int64(percent) / 100
	platformShare = saleAmount - trainerShare
	return trainerShare, platformShare, nil
}

// TrainerSplit is one trainer's computed share of a course sale.
type TrainerSplit struct {
	TrainerID     int
	Percent       int
	TrainerShare  int64
	PlatformShare int64
}

type Service struct {
	repo           Repo
	defaultPercent int
}

func New(repo Repo, defaultPercent int) *Service {
	return &Service{
		repo:           repo,
		defaultPercent: clampPercent(defaultPercent),
	}
}

// Percent is clamped at configuration time, so Split never sees an
// out-of-range value from a stored config.
func clampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

type CreateInput struct {
	CourseID  *int
	TrainerID int
	Percent   int
	Notes     string
	CreatedBy int
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.CommissionConfig, error) {
	cfg := &domain.CommissionConfig{
		CourseID:  in.CourseID,
		TrainerID: in.TrainerID,
		Percent:   clampPercent(in.Percent),
		Active:    true,
		Notes:     in.Notes,
		CreatedBy: in.CreatedBy,
	}
	created, err := s.repo.Create(ctx, cfg)
	if err != nil {
		zap.L().Error("failed to create commission config", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (s *Service) UpdatePercent(ctx context.Context, id, percent, updatedBy int) (*domain.CommissionConfig, error) {
	cfg, err := s.repo.UpdatePercent(ctx, id, clampPercent(percent), updatedBy)
	if err != nil {
		zap.L().Error("failed to update commission config", zap.Error(err))
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("commission config %d: %w", id, domain.ErrInvalidConfiguration)
	}
	return cfg, nil
}

func (s *Service) Deactivate(ctx context.Context, id, updatedBy int) (*domain.CommissionConfig, error) {
	cfg, err := s.repo.Deactivate(ctx, id, updatedBy)
	if err != nil {
		zap.L().Error("failed to deactivate commission config", zap.Error(err))
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("commission config %d: %w", id, domain.ErrInvalidConfiguration)
	}
	return cfg, nil
}

func (s *Service) ListForCourse(ctx context.Context, courseID int) ([]domain.CommissionConfig, error) {
	return s.repo.ListActiveByCourse(ctx, courseID)
}

// ResolvePercent returns the active commission percent for a trainer,
// falling back to the platform default when no configuration exists.
func (s *Service) ResolvePercent(ctx context.Context, courseID *int, trainerID int) (int, error) {
	cfg, err := s.repo.GetActive(ctx, courseID, trainerID)
	if err != nil {
		return 0, err
	}
	if cfg == nil && courseID != nil {
		// No per-course rate; fall back to the trainer's lesson rate.
		cfg, err = s.repo.GetActive(ctx, nil, trainerID)
		if err != nil {
			return 0, err
		}
	}
	if cfg == nil {
		return s.defaultPercent, nil
	}
	return clampPercent(cfg.Percent), nil
}

// SplitForCourse evaluates every active configuration on a course
// independently against the full sale amount. Overlapping commissions
// are permitted; when the summed trainer shares exceed the sale, a
// warning is logged for operator review.
func (s *Service) SplitForCourse(ctx context.Context, courseID int, saleAmount int64) ([]TrainerSplit, error) {
	configs, err := s.repo.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var splits []TrainerSplit
	var total int64
	for _, cfg := range configs {
		trainerShare, platformShare, err := Split(saleAmount, cfg.Percent)
		if err != nil {
			return nil, err
		}
		splits = append(splits, TrainerSplit{
			TrainerID:     cfg.TrainerID,
			Percent:       cfg.Percent,
			TrainerShare:  trainerShare,
			PlatformShare: platformShare,
		})
		total += trainerShare
	}
	if total > saleAmount {
		zap.L().Warn("trainer shares exceed sale amount",
			zap.Int("course_id", courseID), zap.Int64("sale_amount", saleAmount), zap.Int64("total_shares", total))
	}
	return splits, nil
}
