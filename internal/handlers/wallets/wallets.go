package wallets

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/dto"
	"github.com/dancelink/settled/pkg/auth"
	"github.com/dancelink/settled/pkg/utils"
)

type Service interface {
	GetOrCreate(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error)
	History(ctx context.Context, walletID int, cursorTime time.Time, cursorID string, limit int) ([]domain.LedgerTransaction, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetBalance godoc
//
//	@Summary		Get wallet balance
//	@Description	Current coin balance for a user or trainer wallet. Wallets are created lazily on first read.
//	@Tags			Wallets
//	@Security		BearerAuth
//	@Produce		json
//	@Param			ownerType	path		string					true	"user or trainer"
//	@Param			ownerID		path		int						true	"Owner id"
//	@Success		200			{object}	dto.WalletResponseDTO	"Wallet balance"
//	@Failure		403			{object}	utils.Response			"Not the wallet owner"
//	@Failure		422			{object}	utils.Response			"Unknown owner type"
//	@Router			/api/wallets/{ownerType}/{ownerID} [get]
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerType, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}
	wallet, err := h.walletService.GetOrCreate(r.Context(), ownerType, ownerID)
	if err != nil {
		respondWalletError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		OwnerType: string(wallet.OwnerType),
		OwnerID:   wallet.OwnerID,
		Balance:   wallet.Balance,
		UpdatedAt: wallet.UpdatedAt,
	})
}

// GetHistory godoc
//
//	@Summary		Get wallet transaction history
//	@Description	Ledger entries for a wallet, newest first, cursor-paginated.
//	@Tags			Wallets
//	@Security		BearerAuth
//	@Produce		json
//	@Param			ownerType	path		string	true	"user or trainer"
//	@Param			ownerID		path		int		true	"Owner id"
//	@Param			cursor_at	query		string	false	"Cursor timestamp from the previous page"
//	@Param			cursor_id	query		string	false	"Cursor id from the previous page"
//	@Param			limit		query		int		false	"Page size (max 100)"
//	@Success		200			{object}	dto.TransactionHistoryResponseDTO	"Transaction history"
//	@Failure		403			{object}	utils.Response						"Not the wallet owner"
//	@Router			/api/wallets/{ownerType}/{ownerID}/transactions [get]
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ownerType, ownerID, ok := ownerFromURL(w, r)
	if !ok {
		return
	}
	wallet, err := h.walletService.GetOrCreate(r.Context(), ownerType, ownerID)
	if err != nil {
		respondWalletError(w, err)
		return
	}

	var cursorTime time.Time
	if raw := r.URL.Query().Get("cursor_at"); raw != "" {
		cursorTime, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
	}
	cursorID := r.URL.Query().Get("cursor_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.walletService.History(r.Context(), wallet.ID, cursorTime, cursorID, limit)
	if err != nil {
		respondWalletError(w, err)
		return
	}

	response := dto.TransactionHistoryResponseDTO{
		Transactions: make([]dto.TransactionResponseDTO, len(txs)),
	}
	for i, tx := range txs {
		response.Transactions[i] = dto.TransactionResponseDTO{
			ID:           tx.ID.String(),
			Amount:       tx.Amount,
			Kind:         string(tx.Kind),
			BookingID:    tx.BookingID,
			CourseID:     tx.CourseID,
			Description:  tx.Description,
			BalanceAfter: tx.BalanceAfter,
			CreatedAt:    tx.CreatedAt,
		}
	}
	if n := len(txs); n > 0 {
		last := txs[n-1]
		response.NextCursorAt = &last.CreatedAt
		response.NextCursorID = last.ID.String()
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// ownerFromURL parses the wallet owner and enforces that non-admin
// callers only read their own wallet in their own namespace.
func ownerFromURL(w http.ResponseWriter, r *http.Request) (domain.OwnerType, int, bool) {
	ownerType := domain.OwnerType(chi.URLParam(r, "ownerType"))
	if ownerType != domain.OwnerUser && ownerType != domain.OwnerTrainer {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "unknown owner type")
		return "", 0, false
	}
	ownerID, err := strconv.Atoi(chi.URLParam(r, "ownerID"))
	if err != nil || ownerID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid owner id")
		return "", 0, false
	}

	userID := auth.UserIDFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())
	if role != auth.RoleAdmin {
		if ownerID != userID {
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
			return "", 0, false
		}
		if ownerType == domain.OwnerTrainer && role != auth.RoleTrainer {
			utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
			return "", 0, false
		}
	}
	return ownerType, ownerID, true
}

func respondWalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
