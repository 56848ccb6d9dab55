package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/intellifit/gym-core/internal/infra/metrics"
	"github.com/intellifit/gym-core/internal/interval"
	"github.com/intellifit/gym-core/internal/model"
)

// cascadeCreate бронирует оборудование тренировочного плана дочерними
// бронированиями на интервале тренерской сессии. Оборудование —
// удобство, а не жёсткое требование: отказ ребёнка не валит родителя
// и не откатывает уже забронированных соседей.
func (s *BookingService) cascadeCreate(
	ctx context.Context,
	parent *model.Booking,
	tr interval.TimeRange,
	equipmentIDs []uuid.UUID,
) ([]model.Booking, []CascadeFailure) {
	var (
		children []model.Booking
		failures []CascadeFailure
	)

	for _, equipmentID := range equipmentIDs {
		resourceID := equipmentID
		child, err := s.reserveAndCharge(ctx, reserveParams{
			accountID:  parent.AccountID,
			resourceID: &resourceID,
			kind:       model.BookingKindEquipment,
			tr:         tr,
			status:     model.BookingStatusConfirmed,
			parentID:   &parent.ID,
		})
		if err != nil {
			metrics.CascadeChildFailures.Inc()
			failures = append(failures, CascadeFailure{
				ResourceID: equipmentID.String(),
				Reason:     err.Error(),
			})
			continue
		}
		children = append(children, *child)
	}

	return children, failures
}

// cascadeCancel транзитивно отменяет активных детей родителя.
// Fail-soft: ошибки собираются и отдаются вызывающему, обработка
// остальных детей продолжается.
func (s *BookingService) cascadeCancel(ctx context.Context, parent *model.Booking, reason string) []CascadeFailure {
	children, err := s.bookings.ListActiveChildren(ctx, parent.ID.String())
	if err != nil {
		return []CascadeFailure{{BookingID: parent.ID.String(), Reason: err.Error()}}
	}

	var failures []CascadeFailure
	for _, child := range children {
		if _, _, err := s.CancelBooking(ctx, child.ID, reason); err != nil {
			failures = append(failures, CascadeFailure{
				BookingID: child.ID.String(),
				Reason:    err.Error(),
			})
		}
	}
	return failures
}
