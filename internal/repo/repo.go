package repo

import (
	"github.com/dancelink/settled/internal/pg"
	bookingrepo "github.com/dancelink/settled/internal/repo/booking-repo"
	commissionrepo "github.com/dancelink/settled/internal/repo/commission-repo"
	ledgerrepo "github.com/dancelink/settled/internal/repo/ledger-repo"
	walletrepo "github.com/dancelink/settled/internal/repo/wallet-repo"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/walletservice"
)

type Repositories struct {
	WalletRepo     walletservice.WalletRepo
	LedgerRepo     walletservice.LedgerRepo
	BookingRepo    bookingservice.Repo
	CommissionRepo commissionservice.Repo
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	walletRepo := walletrepo.New(conn, txManager)
	ledgerRepo := ledgerrepo.New(conn, txManager)
	bookingRepo := bookingrepo.New(conn, txManager)
	commissionRepo := commissionrepo.New(conn)

	return &Repositories{
		WalletRepo:     walletRepo,
		LedgerRepo:     ledgerRepo,
		BookingRepo:    bookingRepo,
		CommissionRepo: commissionRepo,
	}
}
