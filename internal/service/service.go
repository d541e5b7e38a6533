package service

import (
	adminhandlers "github.com/dancelink/settled/internal/handlers/admin"
	bookingshandlers "github.com/dancelink/settled/internal/handlers/bookings"
	walletshandlers "github.com/dancelink/settled/internal/handlers/wallets"

	"github.com/dancelink/settled/internal/config"
	"github.com/dancelink/settled/internal/events"
	"github.com/dancelink/settled/internal/pg"
	"github.com/dancelink/settled/internal/repo"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/settlementservice"
	"github.com/dancelink/settled/internal/service/walletservice"
)

type Services struct {
	WalletService      walletshandlers.Service
	AdminWalletService adminhandlers.WalletService
	CommissionService  adminhandlers.CommissionService
	BookingService     bookingshandlers.Service
	SettlementService  bookingshandlers.Settlement
}

func New(cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, dispatcher *events.Dispatcher) *Services {
	walletService := walletservice.New(repo.WalletRepo, repo.LedgerRepo, txManager)
	commissionService := commissionservice.New(repo.CommissionRepo, cfg.DefaultCommissionPercent)
	bookingService := bookingservice.New(repo.BookingRepo, dispatcher, cfg.PaymentDeadlineLead)
	settlementService := settlementservice.New(repo.BookingRepo, walletService, commissionService, txManager, dispatcher)

	return &Services{
		WalletService:      walletService,
		AdminWalletService: walletService,
		CommissionService:  commissionService,
		BookingService:     bookingService,
		SettlementService:  settlementService,
	}
}
