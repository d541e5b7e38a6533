package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/dto"
	"github.com/dancelink/settled/internal/service/commissionservice"
	"github.com/dancelink/settled/internal/service/walletservice"
	"github.com/dancelink/settled/pkg/auth"
	"github.com/dancelink/settled/pkg/utils"
)

type WalletService interface {
	GetOrCreate(ctx context.Context, ownerType domain.OwnerType, ownerID int) (*domain.Wallet, error)
	Adjust(ctx context.Context, walletID int, amount int64, meta walletservice.Metadata) (*domain.LedgerTransaction, error)
}

type CommissionService interface {
	Create(ctx context.Context, in commissionservice.CreateInput) (*domain.CommissionConfig, error)
	UpdatePercent(ctx context.Context, id, percent, updatedBy int) (*domain.CommissionConfig, error)
	Deactivate(ctx context.Context, id, updatedBy int) (*domain.CommissionConfig, error)
	ListForCourse(ctx context.Context, courseID int) ([]domain.CommissionConfig, error)
}

type AdminHandler struct {
	walletService     WalletService
	commissionService CommissionService
}

func New(walletService WalletService, commissionService CommissionService) *AdminHandler {
	return &AdminHandler{
		walletService:     walletService,
		commissionService: commissionService,
	}
}

// CreateAdjustment godoc
//
//	@Summary		Post an admin adjustment
//	@Description	Signed correction on a wallet. A negative-going adjustment may bypass the balance floor only with allow_negative and an audit note.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.AdjustmentRequestDTO	true	"Adjustment payload"
//	@Success		201		{object}	dto.TransactionResponseDTO	"Committed adjustment"
//	@Failure		402		{object}	utils.Response				"Would breach the balance floor"
//	@Failure		422		{object}	utils.Response				"Invalid adjustment"
//	@Router			/api/admin/adjustments [post]
func (h *AdminHandler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ownerType := domain.OwnerType(req.OwnerType)
	if ownerType != domain.OwnerUser && ownerType != domain.OwnerTrainer {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "unknown owner type")
		return
	}

	wallet, err := h.walletService.GetOrCreate(r.Context(), ownerType, req.OwnerID)
	if err != nil {
		respondAdminError(w, err)
		return
	}

	adminID := auth.UserIDFromContext(r.Context())
	tx, err := h.walletService.Adjust(r.Context(), wallet.ID, req.Amount, walletservice.Metadata{
		CounterpartyID: &adminID,
		Description:    req.Description,
		AllowNegative:  req.AllowNegative,
	})
	if err != nil {
		respondAdminError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.TransactionResponseDTO{
		ID:           tx.ID.String(),
		Amount:       tx.Amount,
		Kind:         string(tx.Kind),
		Description:  tx.Description,
		BalanceAfter: tx.BalanceAfter,
		CreatedAt:    tx.CreatedAt,
	})
}

// CreateCommission godoc
//
//	@Summary		Create a commission configuration
//	@Description	Admin sets a trainer's share of a course's coin sales. Percent is clamped to [0,100].
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CommissionConfigRequestDTO	true	"Commission configuration"
//	@Success		201		{object}	dto.CommissionConfigResponseDTO	"Created configuration"
//	@Failure		422		{object}	utils.Response					"Invalid configuration"
//	@Router			/api/admin/commissions [post]
func (h *AdminHandler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req dto.CommissionConfigRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrainerID == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.commissionService.Create(r.Context(), commissionservice.CreateInput{
		CourseID:  req.CourseID,
		TrainerID: req.TrainerID,
		Percent:   req.Percent,
		Notes:     req.Notes,
		CreatedBy: auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		respondAdminError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toConfigDTO(cfg))
}

// UpdateCommission godoc
//
//	@Summary		Update a commission percentage
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int									true	"Configuration id"
//	@Param			request	body		dto.CommissionConfigUpdateRequestDTO	true	"New percentage"
//	@Success		200		{object}	dto.CommissionConfigResponseDTO		"Updated configuration"
//	@Failure		422		{object}	utils.Response						"Unknown configuration"
//	@Router			/api/admin/commissions/{id} [put]
func (h *AdminHandler) UpdateCommission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid config id")
		return
	}
	var req dto.CommissionConfigUpdateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg, err := h.commissionService.UpdatePercent(r.Context(), id, req.Percent, auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondAdminError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// DeactivateCommission godoc
//
//	@Summary		Deactivate a commission configuration
//	@Description	Soft delete; the record stays for audit.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int								true	"Configuration id"
//	@Success		200	{object}	dto.CommissionConfigResponseDTO	"Deactivated configuration"
//	@Failure		422	{object}	utils.Response					"Unknown configuration"
//	@Router			/api/admin/commissions/{id} [delete]
func (h *AdminHandler) DeactivateCommission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid config id")
		return
	}
	cfg, err := h.commissionService.Deactivate(r.Context(), id, auth.UserIDFromContext(r.Context()))
	if err != nil {
		respondAdminError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toConfigDTO(cfg))
}

// ListCommissions godoc
//
//	@Summary		List active commission configurations for a course
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			courseId	query		int									true	"Course id"
//	@Success		200			{array}		dto.CommissionConfigResponseDTO		"Active configurations"
//	@Router			/api/admin/commissions [get]
func (h *AdminHandler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(r.URL.Query().Get("courseId"))
	if err != nil || courseID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid course id")
		return
	}
	configs, err := h.commissionService.ListForCourse(r.Context(), courseID)
	if err != nil {
		respondAdminError(w, err)
		return
	}
	response := make([]dto.CommissionConfigResponseDTO, len(configs))
	for i := range configs {
		response[i] = toConfigDTO(&configs[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

func respondAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidConfiguration):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrWalletNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toConfigDTO(c *domain.CommissionConfig) dto.CommissionConfigResponseDTO {
	return dto.CommissionConfigResponseDTO{
		ID:        c.ID,
		CourseID:  c.CourseID,
		TrainerID: c.TrainerID,
		Percent:   c.Percent,
		Active:    c.Active,
		Notes:     c.Notes,
		UpdatedAt: c.UpdatedAt,
	}
}
