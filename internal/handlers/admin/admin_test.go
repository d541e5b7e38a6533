package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/dto"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/walletservice"
	"github.com/dancelink/settled/pkg/auth"
)

func NewMock(t *testing.T) (*AdminHandler, *MockWalletService, *MockCommissionService) {
	ctrl := gomock.NewController(t)
	mockWallets := NewMockWalletService(ctrl)
	mockCommissions := NewMockCommissionService(ctrl)
	handler := New(mockWallets, mockCommissions)
	return handler, mockWallets, mockCommissions
}

func newRequest(method, target string, body []byte, configID string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBuffer(body))
	ctx := context.WithValue(context.Background(), auth.UserIDKey, 9)
	ctx = context.WithValue(ctx, auth.RoleKey, auth.RoleAdmin)
	if configID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", configID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func intPtr(v int) *int {
	return &v
}

func TestAdminHandler_CreateAdjustment(t *testing.T) {
	timeNow := time.Now()
	adminID := 9

	tests := []struct {
		name         string
		body         string
		prepareMock  func(mockWallets *MockWalletService)
		expectedCode int
	}{
		{
			name: "Adjustment committed",
			body: `{"owner_type":"user","owner_id":3,"amount":-50,"description":"correction for duplicate top-up","allow_negative":true}`,
			prepareMock: func(mockWallets *MockWalletService) {
				mockWallets.EXPECT().
					GetOrCreate(gomock.Any(), domain.OwnerUser, 3).
					Return(&domain.Wallet{ID: 1, OwnerType: domain.OwnerUser, OwnerID: 3, Balance: 20}, nil)
				mockWallets.EXPECT().
					Adjust(gomock.Any(), 1, int64(-50), walletservice.Metadata{
						CounterpartyID: &adminID,
						Description:    "correction for duplicate top-up",
						AllowNegative:  true,
					}).
					Return(&domain.LedgerTransaction{
						ID: uuid.New(), WalletID: 1, Amount: -50, Kind: domain.KindAdminAdjustment,
						Description: "correction for duplicate top-up", BalanceAfter: -30,
						AdminVerified: true, CreatedAt: timeNow,
					}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Malformed body",
			body:         `{invalid`,
			prepareMock:  func(mockWallets *MockWalletService) {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Unknown owner type",
			body:         `{"owner_type":"vendor","owner_id":3,"amount":-50}`,
			prepareMock:  func(mockWallets *MockWalletService) {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name: "Floor breach without allow_negative",
			body: `{"owner_type":"user","owner_id":3,"amount":-50}`,
			prepareMock: func(mockWallets *MockWalletService) {
				mockWallets.EXPECT().
					GetOrCreate(gomock.Any(), domain.OwnerUser, 3).
					Return(&domain.Wallet{ID: 1, OwnerType: domain.OwnerUser, OwnerID: 3, Balance: 20}, nil)
				mockWallets.EXPECT().
					Adjust(gomock.Any(), 1, int64(-50), gomock.Any()).
					Return(nil, domain.ErrInsufficientFunds)
			},
			expectedCode: http.StatusPaymentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockWallets, _ := NewMock(t)
			tt.prepareMock(mockWallets)

			r := newRequest(http.MethodPost, "/api/admin/adjustments", []byte(tt.body), "")
			w := httptest.NewRecorder()
			handler.CreateAdjustment(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusCreated {
				var resp dto.TransactionResponseDTO
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, int64(-50), resp.Amount)
				assert.Equal(t, int64(-30), resp.BalanceAfter)
			}
		})
	}
}

func TestAdminHandler_CreateCommission(t *testing.T) {
	handler, _, mockCommissions := NewMock(t)
	timeNow := time.Now()

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Commission created",
			body: `{"course_id":7,"trainer_id":3,"percent":30}`,
			prepareMock: func() {
				mockCommissions.EXPECT().
					Create(gomock.Any(), commissionservice.CreateInput{
						CourseID:  intPtr(7),
						TrainerID: 3,
						Percent:   30,
						CreatedBy: 9,
					}).
					Return(&domain.CommissionConfig{
						ID: 1, CourseID: intPtr(7), TrainerID: 3, Percent: 30, Active: true, UpdatedAt: timeNow,
					}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Missing trainer",
			body:         `{"percent":30}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Service rejects the percent",
			body: `{"trainer_id":3,"percent":130}`,
			prepareMock: func() {
				mockCommissions.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.ErrInvalidConfiguration)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := newRequest(http.MethodPost, "/api/admin/commissions", []byte(tt.body), "")
			w := httptest.NewRecorder()
			handler.CreateCommission(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusCreated {
				var resp dto.CommissionConfigResponseDTO
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, 30, resp.Percent)
				assert.True(t, resp.Active)
			}
		})
	}
}

func TestAdminHandler_UpdateCommission(t *testing.T) {
	handler, _, mockCommissions := NewMock(t)
	timeNow := time.Now()

	tests := []struct {
		name         string
		configID     string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:     "Percent updated",
			configID: "1",
			body:     `{"percent":40}`,
			prepareMock: func() {
				mockCommissions.EXPECT().
					UpdatePercent(gomock.Any(), 1, 40, 9).
					Return(&domain.CommissionConfig{ID: 1, TrainerID: 3, Percent: 40, Active: true, UpdatedAt: timeNow}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Invalid config id",
			configID:     "abc",
			body:         `{"percent":40}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:     "Unknown config",
			configID: "1",
			body:     `{"percent":40}`,
			prepareMock: func() {
				mockCommissions.EXPECT().
					UpdatePercent(gomock.Any(), 1, 40, 9).
					Return(nil, domain.ErrInvalidConfiguration)
			},
			expectedCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := newRequest(http.MethodPut, "/api/admin/commissions/"+tt.configID, []byte(tt.body), tt.configID)
			w := httptest.NewRecorder()
			handler.UpdateCommission(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestAdminHandler_DeactivateCommission(t *testing.T) {
	handler, _, mockCommissions := NewMock(t)
	timeNow := time.Now()

	mockCommissions.EXPECT().
		Deactivate(gomock.Any(), 1, 9).
		Return(&domain.CommissionConfig{ID: 1, TrainerID: 3, Percent: 30, Active: false, UpdatedAt: timeNow}, nil)

	r := newRequest(http.MethodDelete, "/api/admin/commissions/1", nil, "1")
	w := httptest.NewRecorder()
	handler.DeactivateCommission(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.CommissionConfigResponseDTO
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Active)
}

func TestAdminHandler_ListCommissions(t *testing.T) {
	handler, _, mockCommissions := NewMock(t)
	timeNow := time.Now()

	tests := []struct {
		name         string
		target       string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Active configs listed",
			target: "/api/admin/commissions?courseId=7",
			prepareMock: func() {
				mockCommissions.EXPECT().
					ListForCourse(gomock.Any(), 7).
					Return([]domain.CommissionConfig{
						{ID: 1, CourseID: intPtr(7), TrainerID: 3, Percent: 30, Active: true, UpdatedAt: timeNow},
						{ID: 2, CourseID: intPtr(7), TrainerID: 4, Percent: 50, Active: true, UpdatedAt: timeNow},
					}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing course id",
			target:       "/api/admin/commissions",
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			r := newRequest(http.MethodGet, tt.target, nil, "")
			w := httptest.NewRecorder()
			handler.ListCommissions(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				var resp []dto.CommissionConfigResponseDTO
				assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Len(t, resp, 2)
			}
		})
	}
}
