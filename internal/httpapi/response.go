package httpapi

import (
	"encoding/json"
	"time"

	"github.com/intellifit/gym-core/internal/model"
)

type bookingResponse struct {
	ID              string     `json:"id"`
	AccountID       string     `json:"account_id"`
	ResourceID      *string    `json:"resource_id,omitempty"`
	Kind            string     `json:"kind"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Status          string     `json:"status"`
	TokensCost      int        `json:"tokens_cost"`
	ParentBookingID *string    `json:"parent_booking_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	CheckInTime     *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime    *time.Time `json:"check_out_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:           b.ID.String(),
		AccountID:    b.AccountID.String(),
		Kind:         string(b.Kind),
		StartTime:    b.StartsAt,
		EndTime:      b.EndsAt,
		Status:       string(b.Status),
		TokensCost:   b.TokensCost,
		Notes:        b.Notes,
		CancelReason: b.CancelReason,
		CheckInTime:  b.CheckInTime,
		CheckOutTime: b.CheckOutTime,
		CreatedAt:    b.CreatedAt,
	}
	if b.ResourceID != nil {
		id := b.ResourceID.String()
		resp.ResourceID = &id
	}
	if b.ParentBookingID != nil {
		id := b.ParentBookingID.String()
		resp.ParentBookingID = &id
	}
	return resp
}

type resourceResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	HourlyCost int    `json:"hourly_cost"`
	Status     string `json:"status"`
}

func toResourceResponse(r *model.Resource) resourceResponse {
	return resourceResponse{
		ID:         r.ID.String(),
		Kind:       string(r.Kind),
		Name:       r.Name,
		HourlyCost: r.HourlyCost,
		Status:     string(r.Status),
	}
}

type eventResponse struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func toEventResponse(ev *model.Event) eventResponse {
	return eventResponse{
		ID:        ev.ID.String(),
		EventType: string(ev.EventType),
		Payload:   json.RawMessage(ev.Payload),
		CreatedAt: ev.CreatedAt,
	}
}

type transactionResponse struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	Amount           int       `json:"amount"`
	Reason           string    `json:"reason"`
	RelatedBookingID *string   `json:"related_booking_id,omitempty"`
	BalanceAfter     int       `json:"balance_after"`
	CreatedAt        time.Time `json:"created_at"`
}

func toTransactionResponse(tx *model.TokenTransaction) transactionResponse {
	resp := transactionResponse{
		ID:           tx.ID.String(),
		AccountID:    tx.AccountID.String(),
		Amount:       tx.Amount,
		Reason:       string(tx.Reason),
		BalanceAfter: tx.BalanceAfter,
		CreatedAt:    tx.CreatedAt,
	}
	if tx.RelatedBookingID != nil {
		id := tx.RelatedBookingID.String()
		resp.RelatedBookingID = &id
	}
	return resp
}
