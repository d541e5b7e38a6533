package commissionservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/dancelink/settled/internal/domain"
)

func NewMock(t *testing.T) (*Service, *MockRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	service := New(repo, 70)
	defer ctrl.Finish()
	return service, repo
}

func intPtr(v int) *int {
	return &v
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name             string
		saleAmount       int64
		percent          int
		expectedTrainer  int64
		expectedPlatform int64
		expectedError    error
	}{
		{
			name:             "Course sale at thirty percent",
			saleAmount:       100,
			percent:          30,
			expectedTrainer:  30,
			expectedPlatform: 70,
		},
		{
			name:             "Zero percent leaves everything with the platform",
			saleAmount:       100,
			percent:          0,
			expectedTrainer:  0,
			expectedPlatform: 100,
		},
		{
			name:             "Hundred percent leaves nothing with the platform",
			saleAmount:       100,
			percent:          100,
			expectedTrainer:  100,
			expectedPlatform: 0,
		},
		{
			name:             "Odd remainder goes to the platform",
			saleAmount:       101,
			percent:          33,
			expectedTrainer:  33,
			expectedPlatform: 68,
		},
		{
			name:             "Zero sale amount",
			saleAmount:       0,
			percent:          50,
			expectedTrainer:  0,
			expectedPlatform: 0,
		},
		{
			name:          "Percent above range rejected",
			saleAmount:    100,
			percent:       101,
			expectedError: domain.ErrInvalidConfiguration,
		},
		{
			name:          "Negative percent rejected",
			saleAmount:    100,
			percent:       -1,
			expectedError: domain.ErrInvalidConfiguration,
		},
		{
			name:          "Negative sale amount rejected",
			saleAmount:    -100,
			percent:       30,
			expectedError: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainerShare, platformShare, err := Split(tt.saleAmount, tt.percent)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedTrainer, trainerShare)
			assert.Equal(t, tt.expectedPlatform, platformShare)
			assert.Equal(t, tt.saleAmount, trainerShare+platformShare)
		})
	}
}

func TestCreate(t *testing.T) {
	service, repo := NewMock(t)
	tests := []struct {
		name            string
		input           CreateInput
		prepareMock     func()
		expectedPercent int
		expectedError   error
	}{
		{
			name:  "Commission created",
			input: CreateInput{CourseID: intPtr(7), TrainerID: 3, Percent: 30, CreatedBy: 1},
			prepareMock: func() {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, c *domain.CommissionConfig) (*domain.CommissionConfig, error) {
						assert.True(t, c.Active)
						return c, nil
					})
			},
			expectedPercent: 30,
		},
		{
			name:  "Out-of-range percent clamped",
			input: CreateInput{TrainerID: 3, Percent: 140, CreatedBy: 1},
			prepareMock: func() {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, c *domain.CommissionConfig) (*domain.CommissionConfig, error) {
						return c, nil
					})
			},
			expectedPercent: 100,
		},
		{
			name:  "Repository error",
			input: CreateInput{TrainerID: 3, Percent: 30},
			prepareMock: func() {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			cfg, err := service.Create(context.Background(), tt.input)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedPercent, cfg.Percent)
			}
		})
	}
}

func TestResolvePercent(t *testing.T) {
	service, repo := NewMock(t)
	tests := []struct {
		name            string
		courseID        *int
		prepareMock     func()
		expectedPercent int
		expectedError   error
	}{
		{
			name:     "Per-course rate wins",
			courseID: intPtr(7),
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), intPtr(7), 3).Return(&domain.CommissionConfig{Percent: 30}, nil)
			},
			expectedPercent: 30,
		},
		{
			name:     "Falls back to trainer lesson rate",
			courseID: intPtr(7),
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), intPtr(7), 3).Return(nil, nil)
				repo.EXPECT().GetActive(gomock.Any(), nil, 3).Return(&domain.CommissionConfig{Percent: 55}, nil)
			},
			expectedPercent: 55,
		},
		{
			name:     "Falls back to platform default",
			courseID: intPtr(7),
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), intPtr(7), 3).Return(nil, nil)
				repo.EXPECT().GetActive(gomock.Any(), nil, 3).Return(nil, nil)
			},
			expectedPercent: 70,
		},
		{
			name:     "Private lesson skips the course lookup",
			courseID: nil,
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), nil, 3).Return(&domain.CommissionConfig{Percent: 60}, nil)
			},
			expectedPercent: 60,
		},
		{
			name:     "Stored out-of-range percent clamped",
			courseID: nil,
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), nil, 3).Return(&domain.CommissionConfig{Percent: 130}, nil)
			},
			expectedPercent: 100,
		},
		{
			name:     "Repository error",
			courseID: nil,
			prepareMock: func() {
				repo.EXPECT().GetActive(gomock.Any(), nil, 3).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			percent, err := service.ResolvePercent(context.Background(), tt.courseID, 3)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedPercent, percent)
			}
		})
	}
}

func TestUpdatePercent(t *testing.T) {
	service, repo := NewMock(t)
	tests := []struct {
		name          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "Percent updated",
			prepareMock: func() {
				repo.EXPECT().UpdatePercent(gomock.Any(), 1, 40, 9).Return(&domain.CommissionConfig{ID: 1, Percent: 40}, nil)
			},
		},
		{
			name: "Unknown config",
			prepareMock: func() {
				repo.EXPECT().UpdatePercent(gomock.Any(), 1, 40, 9).Return(nil, nil)
			},
			expectedError: domain.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			cfg, err := service.UpdatePercent(context.Background(), 1, 40, 9)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 40, cfg.Percent)
			}
		})
	}
}

func TestDeactivate(t *testing.T) {
	service, repo := NewMock(t)
	tests := []struct {
		name          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "Config deactivated",
			prepareMock: func() {
				repo.EXPECT().Deactivate(gomock.Any(), 1, 9).Return(&domain.CommissionConfig{ID: 1, Active: false}, nil)
			},
		},
		{
			name: "Unknown config",
			prepareMock: func() {
				repo.EXPECT().Deactivate(gomock.Any(), 1, 9).Return(nil, nil)
			},
			expectedError: domain.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			cfg, err := service.Deactivate(context.Background(), 1, 9)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.False(t, cfg.Active)
			}
		})
	}
}

func TestSplitForCourse(t *testing.T) {
	service, repo := NewMock(t)
	tests := []struct {
		name           string
		prepareMock    func()
		expectedSplits []TrainerSplit
		expectedError  error
	}{
		{
			name: "Each config evaluated independently",
			prepareMock: func() {
				repo.EXPECT().ListActiveByCourse(gomock.Any(), 7).Return([]domain.CommissionConfig{
					{TrainerID: 3, Percent: 30},
					{TrainerID: 4, Percent: 50},
				}, nil)
			},
			expectedSplits: []TrainerSplit{
				{TrainerID: 3, Percent: 30, TrainerShare: 30, PlatformShare: 70},
				{TrainerID: 4, Percent: 50, TrainerShare: 50, PlatformShare: 50},
			},
		},
		{
			name: "Overlapping configs exceeding the sale are still returned",
			prepareMock: func() {
				repo.EXPECT().ListActiveByCourse(gomock.Any(), 7).Return([]domain.CommissionConfig{
					{TrainerID: 3, Percent: 80},
					{TrainerID: 4, Percent: 80},
				}, nil)
			},
			expectedSplits: []TrainerSplit{
				{TrainerID: 3, Percent: 80, TrainerShare: 80, PlatformShare: 20},
				{TrainerID: 4, Percent: 80, TrainerShare: 80, PlatformShare: 20},
			},
		},
		{
			name: "Repository error",
			prepareMock: func() {
				repo.EXPECT().ListActiveByCourse(gomock.Any(), 7).Return(nil, errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			splits, err := service.SplitForCourse(context.Background(), 7, 100)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedSplits, splits)
			}
		})
	}
}
