package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dancelink/settled/internal/domain"
	"github.com/dancelink/settled/internal/dto"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/settlementservice"
	"github.com/dancelink/settled/pkg/auth"
	"github.com/dancelink/settled/pkg/utils"
)

type Service interface {
	Create(ctx context.Context, in bookingservice.CreateInput) (*domain.Booking, error)
	Get(ctx context.Context, bookingID int) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int) ([]domain.Booking, error)
	ListByTrainer(ctx context.Context, trainerID int) ([]domain.Booking, error)
	Confirm(ctx context.Context, bookingID int, confirmedTime time.Time) (*domain.Booking, error)
	OpenPayment(ctx context.Context, bookingID int) (*domain.Booking, error)
	Reject(ctx context.Context, bookingID int, reason string) (*domain.Booking, error)
}

type Settlement interface {
	Apply(ctx context.Context, event settlementservice.Event) (*settlementservice.Result, error)
}

type BookingHandler struct {
	bookingService Service
	settlement     Settlement
}

func New(bookingService Service, settlement Settlement) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		settlement:     settlement,
	}
}

// CreateBooking godoc
//
//	@Summary		Request a new booking
//	@Description	Create a pending booking for a slot of trainer time.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateBookingRequestDTO	true	"Booking request payload"
//	@Success		201		{object}	dto.BookingResponseDTO		"Created booking"
//	@Failure		400		{object}	utils.Response				"Invalid request body"
//	@Failure		401		{object}	utils.Response				"User not authorized"
//	@Failure		500		{object}	utils.Response				"Internal server error"
//	@Router			/api/bookings [post]
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req dto.CreateBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TrainerID == 0 || req.PriceCoins < 0 {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "invalid booking request")
		return
	}

	booking, err := h.bookingService.Create(r.Context(), bookingservice.CreateInput{
		TrainerID:       req.TrainerID,
		TrainerName:     req.TrainerName,
		CustomerID:      userID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CourseID:        req.CourseID,
		RequestedTime:   req.RequestedTime,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		PriceCoins:      req.PriceCoins,
		Notes:           req.Notes,
	})
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toBookingDTO(booking))
}

// GetBookings godoc
//
//	@Summary		List own bookings
//	@Description	Customers see bookings they requested, trainers the ones they teach.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.BookingResponseDTO	"Bookings"
//	@Failure		401	{object}	utils.Response			"User not authorized"
//	@Failure		500	{object}	utils.Response			"Internal server error"
//	@Router			/api/bookings [get]
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())

	var bookings []domain.Booking
	var err error
	if role == auth.RoleTrainer {
		bookings, err = h.bookingService.ListByTrainer(r.Context(), userID)
	} else {
		bookings, err = h.bookingService.ListByCustomer(r.Context(), userID)
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.BookingResponseDTO, len(bookings))
	for i := range bookings {
		response[i] = toBookingDTO(&bookings[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// GetBooking godoc
//
//	@Summary		Get a booking
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int						true	"Booking id"
//	@Success		200	{object}	dto.BookingResponseDTO	"Booking"
//	@Failure		403	{object}	utils.Response			"Not a party to the booking"
//	@Failure		404	{object}	utils.Response			"Booking not found"
//	@Router			/api/bookings/{id} [get]
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	booking, err := h.bookingService.Get(r.Context(), bookingID)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())
	if role != auth.RoleAdmin && booking.CustomerID != userID && booking.TrainerID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(booking))
}

// ConfirmBooking godoc
//
//	@Summary		Confirm a pending booking
//	@Description	Trainer fixes the lesson time; the payment deadline becomes 24h before it.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Booking id"
//	@Param			request	body		dto.ConfirmBookingRequestDTO	true	"Confirmed lesson time"
//	@Success		200		{object}	dto.BookingResponseDTO			"Confirmed booking"
//	@Failure		404		{object}	utils.Response					"Booking not found"
//	@Failure		409		{object}	utils.Response					"Not confirmable in its current state"
//	@Router			/api/bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	var req dto.ConfirmBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConfirmedTime.IsZero() {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	booking, err := h.bookingService.Confirm(r.Context(), bookingID, req.ConfirmedTime)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(booking))
}

// OpenPayment godoc
//
//	@Summary		Open the payment window
//	@Description	Move a confirmed booking to awaiting_payment once a payment link is issued.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int						true	"Booking id"
//	@Success		200	{object}	dto.BookingResponseDTO	"Booking awaiting payment"
//	@Failure		404	{object}	utils.Response			"Booking not found"
//	@Failure		409	{object}	utils.Response			"Not openable in its current state"
//	@Failure		410	{object}	utils.Response			"Payment deadline already passed"
//	@Router			/api/bookings/{id}/open-payment [post]
func (h *BookingHandler) OpenPayment(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	booking, err := h.bookingService.OpenPayment(r.Context(), bookingID)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(booking))
}

// PayBooking godoc
//
//	@Summary		Confirm payment manually
//	@Description	Admin records an out-of-band payment confirmation with its transaction reference; settles the coin transfer.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Booking id"
//	@Param			request	body		dto.PayBookingRequestDTO	true	"Payment confirmation"
//	@Success		200		{object}	dto.BookingResponseDTO	"Paid booking"
//	@Failure		402		{object}	utils.Response			"Insufficient funds"
//	@Failure		404		{object}	utils.Response			"Booking not found"
//	@Failure		409		{object}	utils.Response			"Not payable in its current state"
//	@Failure		410		{object}	utils.Response			"Payment deadline passed"
//	@Router			/api/bookings/{id}/pay [post]
func (h *BookingHandler) Pay(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	var req dto.PayBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.settlement.Apply(r.Context(), settlementservice.Event{
		Kind:            settlementservice.EventManualPaymentConfirmed,
		BookingID:       bookingID,
		Reference:       req.Reference,
		AmountConfirmed: req.Amount,
		AdminOverride:   req.AdminOverride,
		ActorID:         auth.UserIDFromContext(r.Context()),
		ActorRole:       domain.RoleAdmin,
	})
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(result.Booking))
}

// CancelBooking godoc
//
//	@Summary		Cancel a booking
//	@Description	Customer or admin cancellation. A paid booking is refunded with offsetting ledger entries.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Booking id"
//	@Param			request	body		dto.CancelBookingRequestDTO	false	"Cancellation reason"
//	@Success		200		{object}	dto.BookingResponseDTO		"Cancelled booking"
//	@Failure		403		{object}	utils.Response				"Not a party to the booking"
//	@Failure		404		{object}	utils.Response				"Booking not found"
//	@Failure		409		{object}	utils.Response				"Not cancellable in its current state"
//	@Router			/api/bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	var req dto.CancelBookingRequestDTO
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	userID := auth.UserIDFromContext(r.Context())
	role := auth.RoleFromContext(r.Context())

	booking, err := h.bookingService.Get(r.Context(), bookingID)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	if role != auth.RoleAdmin && booking.CustomerID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}

	result, err := h.settlement.Apply(r.Context(), settlementservice.Event{
		Kind:      settlementservice.EventCancellationRequested,
		BookingID: bookingID,
		ActorID:   userID,
		ActorRole: domain.Role(role),
		Reason:    req.Reason,
	})
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(result.Booking))
}

// RejectBooking godoc
//
//	@Summary		Reject a booking
//	@Description	Trainer/admin terminal exit from pending or confirmed. No ledger effect.
//	@Tags			Bookings
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Booking id"
//	@Param			request	body		dto.RejectBookingRequestDTO	false	"Rejection reason"
//	@Success		200		{object}	dto.BookingResponseDTO		"Rejected booking"
//	@Failure		404		{object}	utils.Response				"Booking not found"
//	@Failure		409		{object}	utils.Response				"Not rejectable in its current state"
//	@Router			/api/bookings/{id}/reject [post]
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromURL(w, r)
	if !ok {
		return
	}
	var req dto.RejectBookingRequestDTO
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	booking, err := h.bookingService.Reject(r.Context(), bookingID, req.Reason)
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(booking))
}

// PurchaseWebhook godoc
//
//	@Summary		Purchase completed callback
//	@Description	Payment-provider confirmation for an automated purchase. The provider signature is validated upstream.
//	@Tags			Settlement
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.PurchaseWebhookRequestDTO	true	"Provider confirmation"
//	@Success		200		{object}	dto.BookingResponseDTO			"Settled booking"
//	@Failure		404		{object}	utils.Response					"Booking not found"
//	@Failure		409		{object}	utils.Response					"Not payable in its current state"
//	@Failure		410		{object}	utils.Response					"Payment deadline passed"
//	@Router			/api/settlement/purchase [post]
func (h *BookingHandler) PurchaseWebhook(w http.ResponseWriter, r *http.Request) {
	var req dto.PurchaseWebhookRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.settlement.Apply(r.Context(), settlementservice.Event{
		Kind:            settlementservice.EventPurchaseCompleted,
		BookingID:       req.BookingID,
		Reference:       req.Reference,
		AmountConfirmed: req.Amount,
	})
	if err != nil {
		respondBookingError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toBookingDTO(result.Booking))
}

func bookingIDFromURL(w http.ResponseWriter, r *http.Request) (int, bool) {
	bookingID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || bookingID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid booking id")
		return 0, false
	}
	return bookingID, true
}

func respondBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDeadlinePassed):
		utils.RespondWithError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidConfiguration):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toBookingDTO(b *domain.Booking) dto.BookingResponseDTO {
	return dto.BookingResponseDTO{
		ID:              b.ID,
		Number:          b.Number,
		TrainerID:       b.TrainerID,
		TrainerName:     b.TrainerName,
		CustomerID:      b.CustomerID,
		CustomerName:    b.CustomerName,
		CourseID:        b.CourseID,
		RequestedTime:   b.RequestedTime,
		ConfirmedTime:   b.ConfirmedTime,
		DurationMinutes: b.DurationMinutes,
		Price:           b.Price,
		PriceCoins:      b.PriceCoins,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentDeadline: b.PaymentDeadline,
		PaidAt:          b.PaidAt,
		PaymentRef:      b.PaymentRef,
		TrainerRevenue:  b.TrainerRevenue,
		PlatformFee:     b.PlatformFee,
		CreatedAt:       b.CreatedAt,
	}
}
