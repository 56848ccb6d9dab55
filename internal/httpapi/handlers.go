package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intellifit/gym-core/internal/interval"
	"github.com/intellifit/gym-core/internal/ledger"
	"github.com/intellifit/gym-core/internal/model"
	"github.com/intellifit/gym-core/internal/paging"
	"github.com/intellifit/gym-core/internal/repository"
	"github.com/intellifit/gym-core/internal/service"
)

// Handler держит зависимости HTTP-слоя движка бронирования.
type Handler struct {
	svc       *service.BookingService
	ledger    *ledger.Service
	resources repository.ResourceRepository
	events    repository.EventRepository
}

func NewHandler(
	svc *service.BookingService,
	ledgerSvc *ledger.Service,
	resources repository.ResourceRepository,
	events repository.EventRepository,
) *Handler {
	return &Handler{svc: svc, ledger: ledgerSvc, resources: resources, events: events}
}

type createBookingRequest struct {
	AccountID            string    `json:"account_id" binding:"required,uuid4"`
	ResourceID           *string   `json:"resource_id" binding:"omitempty,uuid4"`
	Kind                 string    `json:"kind" binding:"required"`
	StartTime            time.Time `json:"start_time" binding:"required"`
	EndTime              time.Time `json:"end_time" binding:"required"`
	Notes                string    `json:"notes"`
	StartPending         bool      `json:"start_pending"`
	RequiredEquipmentIDs []string  `json:"required_equipment_ids" binding:"omitempty,dive,uuid4"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type creditRequest struct {
	Amount int    `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"omitempty,oneof=purchase admin_adjustment"`
}

func (h *Handler) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_id"})
		return
	}

	in := service.CreateBookingInput{
		AccountID:    accountID,
		Kind:         model.BookingKind(req.Kind),
		Start:        req.StartTime,
		End:          req.EndTime,
		Notes:        req.Notes,
		StartPending: req.StartPending,
	}

	if req.ResourceID != nil {
		id, err := uuid.Parse(*req.ResourceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_id"})
			return
		}
		in.ResourceID = &id
	}

	for _, raw := range req.RequiredEquipmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid required_equipment_ids"})
			return
		}
		in.RequiredEquipmentIDs = append(in.RequiredEquipmentIDs, id)
	}

	result, err := h.svc.CreateBooking(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	children := make([]bookingResponse, 0, len(result.Children))
	for _, child := range result.Children {
		children = append(children, toBookingResponse(&child))
	}

	// Отказы каскада — часть успешного ответа, не ошибка.
	c.JSON(http.StatusCreated, gin.H{
		"booking":          toBookingResponse(result.Booking),
		"children":         children,
		"cascade_failures": failuresOrEmpty(result.CascadeFailures),
	})
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.svc.GetBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *Handler) confirmBooking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.svc.ConfirmBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *Handler) cancelBooking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	booking, failures, err := h.svc.CancelBooking(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking":          toBookingResponse(booking),
		"cascade_failures": failuresOrEmpty(failures),
	})
}

func (h *Handler) checkIn(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.svc.CheckIn(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *Handler) checkOut(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.svc.CheckOut(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (h *Handler) bookingEvents(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// 404 для несуществующего бронирования, а не пустой список.
	if _, err := h.svc.GetBooking(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	events, err := h.events.ListByBooking(c.Request.Context(), id.String())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		items = append(items, toEventResponse(&ev))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listResources(c *gin.Context) {
	kind := model.ResourceKind(c.DefaultQuery("kind", string(model.ResourceKindEquipment)))
	if kind != model.ResourceKindEquipment && kind != model.ResourceKindCoachSlot {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
		return
	}

	resources, err := h.resources.ListByKind(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]resourceResponse, 0, len(resources))
	for _, res := range resources {
		items = append(items, toResourceResponse(&res))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listAccountBookings(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	page, size, limit, offset := paging.Clamp(queryInt(c, "page"), queryInt(c, "page_size"))

	bookings, total, err := h.svc.ListUserBookings(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingResponse(&b))
	}
	c.JSON(http.StatusOK, paging.NewPage(items, page, size, total))
}

func (h *Handler) listResourceBookings(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	from, to, ok := queryRange(c)
	if !ok {
		return
	}

	page, size, limit, offset := paging.Clamp(queryInt(c, "page"), queryInt(c, "page_size"))

	bookings, total, err := h.svc.ListResourceBookings(c.Request.Context(), id, from, to, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingResponse(&b))
	}
	c.JSON(http.StatusOK, paging.NewPage(items, page, size, total))
}

func (h *Handler) resourceAvailability(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	from, to, ok := queryRange(c)
	if !ok {
		return
	}

	free, err := h.svc.IsResourceFree(c.Request.Context(), id, from, to)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resource_id": id.String(),
		"from":        from,
		"to":          to,
		"is_free":     free,
	})
}

func (h *Handler) getBalance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id.String(), "balance": balance})
}

func (h *Handler) listTransactions(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	page, size, limit, offset := paging.Clamp(queryInt(c, "page"), queryInt(c, "page_size"))

	txs, total, err := h.ledger.ListTransactions(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(&tx))
	}
	c.JSON(http.StatusOK, paging.NewPage(items, page, size, total))
}

func (h *Handler) credit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reason := model.TxReasonPurchase
	if req.Reason == string(model.TxReasonAdminAdjustment) {
		reason = model.TxReasonAdminAdjustment
	}

	txID, err := h.ledger.Credit(c.Request.Context(), id, req.Amount, reason)
	if err != nil {
		writeError(c, err)
		return
	}

	balance, err := h.ledger.Balance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction_id": txID.String(),
		"balance":        balance,
	})
}

// writeError отображает ошибки движка в HTTP-статусы.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInterval),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrResourceUnavailable),
		errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOutOfWindow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, interval.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	v := c.Query(name)
	if v == "" {
		return 0
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func queryRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return time.Time{}, time.Time{}, false
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be after from"})
		return time.Time{}, time.Time{}, false
	}
	return from.UTC(), to.UTC(), true
}

func failuresOrEmpty(failures []service.CascadeFailure) []service.CascadeFailure {
	if failures == nil {
		return []service.CascadeFailure{}
	}
	return failures
}
