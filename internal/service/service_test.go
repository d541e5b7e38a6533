package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/dancelink/settled/internal/config"
	"github.com/dancelink/settled/internal/events"
	"github.com/dancelink/settled/internal/pg"
	"github.com/dancelink/settled/internal/repo"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/walletservice"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repos := &repo.Repositories{
		WalletRepo:     walletservice.NewMockWalletRepo(ctrl),
		LedgerRepo:     walletservice.NewMockLedgerRepo(ctrl),
		BookingRepo:    bookingservice.NewMockRepo(ctrl),
		CommissionRepo: commissionservice.NewMockRepo(ctrl),
	}

	cfg := &config.Config{
		PaymentDeadlineLead:      24 * time.Hour,
		DefaultCommissionPercent: 70,
	}

	services := New(cfg, repos, pg.NewMockTXManager(ctrl), events.NewDispatcher())

	assert.NotNil(t, services.WalletService)
	assert.NotNil(t, services.AdminWalletService)
	assert.NotNil(t, services.CommissionService)
	assert.NotNil(t, services.BookingService)
	assert.NotNil(t, services.SettlementService)
}
