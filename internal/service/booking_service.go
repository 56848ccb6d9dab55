package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/availability"
	"github.com/intellifit/gym-core/internal/infra/logger"
	"github.com/intellifit/gym-core/internal/infra/metrics"
	"github.com/intellifit/gym-core/internal/interval"
	"github.com/intellifit/gym-core/internal/ledger"
	"github.com/intellifit/gym-core/internal/locker"
	"github.com/intellifit/gym-core/internal/model"
	"github.com/intellifit/gym-core/internal/notify"
	"github.com/intellifit/gym-core/internal/repository"
)

// Options — политики жизненного цикла бронирований.
type Options struct {
	// Тарифицируемая единица: неполная единица округляется вверх.
	BillingUnit time.Duration
	// За сколько до начала интервала разрешён чек-ин.
	CheckInGrace time.Duration
	// Допуск на прошлое при валидации начала интервала (часовой дрейф клиентов).
	PastSkew time.Duration

	// Переопределение "сейчас" в тестах.
	Now func() time.Time
}

func (o *Options) withDefaults() {
	if o.BillingUnit <= 0 {
		o.BillingUnit = time.Hour
	}
	if o.CheckInGrace <= 0 {
		o.CheckInGrace = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
}

// BookingService — оркестратор жизненного цикла бронирования:
// резервирует интервал в Availability Index, списывает токены в Ledger,
// ведёт машину состояний и каскад дочерних бронирований.
type BookingService struct {
	bookings repository.BookingRepository
	events   repository.EventRepository
	avail    *availability.Index
	ledger   *ledger.Service
	notify   notify.Publisher
	opts     Options

	// Переходы одного бронирования сериализуются поключевым мьютексом:
	// чтение статуса и запись перехода должны быть одним целым,
	// иначе конкурентные отмены сделают по возврату каждая.
	locks *locker.KeyedMutex
}

func NewBookingService(
	bookings repository.BookingRepository,
	events repository.EventRepository,
	avail *availability.Index,
	ledgerSvc *ledger.Service,
	publisher notify.Publisher,
	opts Options,
) *BookingService {
	opts.withDefaults()
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &BookingService{
		bookings: bookings,
		events:   events,
		avail:    avail,
		ledger:   ledgerSvc,
		notify:   publisher,
		opts:     opts,
		locks:    locker.New(),
	}
}

type CreateBookingInput struct {
	AccountID  uuid.UUID
	ResourceID *uuid.UUID
	Kind       model.BookingKind
	Start      time.Time
	End        time.Time
	Notes      string

	// Бронирования, заведённые ресепшеном, стартуют в pending
	// и ждут ConfirmBooking; самообслуживание подтверждается сразу.
	StartPending bool

	// Для coach_session: оборудование из плана тренировки,
	// которое каскад бронирует дочерними бронированиями.
	RequiredEquipmentIDs []uuid.UUID
}

type CreateBookingResult struct {
	Booking *model.Booking

	// Дочерние бронирования каскада (для coach_session).
	Children []model.Booking
	// Отказы каскада; непустой список не отменяет родителя.
	CascadeFailures []CascadeFailure
}

// CreateBooking создаёт бронирование: резерв интервала и списание
// токенов образуют единое целое — неудача списания откатывает резерв.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	tr, err := interval.NewTimeRange(in.Start, in.End)
	if err != nil {
		return nil, ErrInvalidInterval
	}

	now := s.opts.Now()
	if tr.Start.Before(now.Add(-s.opts.PastSkew)) {
		return nil, ErrInvalidInterval
	}

	switch in.Kind {
	case model.BookingKindEquipment, model.BookingKindCoachSession:
		if in.ResourceID == nil {
			return nil, ErrInvalidRequest
		}
	case model.BookingKindServiceOnly:
		if in.ResourceID != nil {
			return nil, ErrInvalidRequest
		}
	default:
		return nil, ErrInvalidRequest
	}

	status := model.BookingStatusConfirmed
	if in.StartPending {
		status = model.BookingStatusPending
	}

	booking, err := s.reserveAndCharge(ctx, reserveParams{
		accountID:  in.AccountID,
		resourceID: in.ResourceID,
		kind:       in.Kind,
		tr:         tr,
		status:     status,
		notes:      in.Notes,
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingsCreated.Inc()

	result := &CreateBookingResult{Booking: booking}

	if in.Kind == model.BookingKindCoachSession {
		result.Children, result.CascadeFailures = s.cascadeCreate(ctx, booking, tr, in.RequiredEquipmentIDs)
	}

	s.emit(ctx, model.EventTypeBookingCreated, booking, map[string]any{
		"tokens_cost":      booking.TokensCost,
		"cascade_children": len(result.Children),
		"cascade_failures": len(result.CascadeFailures),
	})

	return result, nil
}

type reserveParams struct {
	accountID  uuid.UUID
	resourceID *uuid.UUID
	kind       model.BookingKind
	tr         interval.TimeRange
	status     model.BookingStatus
	notes      string
	parentID   *uuid.UUID
}

// reserveAndCharge выполняет пару «резерв + списание» как одно целое.
// Компенсация (Release резерва) идёт в defer и срабатывает на любом
// пути, где бронирование не было зафиксировано в БД.
func (s *BookingService) reserveAndCharge(ctx context.Context, p reserveParams) (*model.Booking, error) {
	var (
		handle    *availability.ReservationHandle
		committed bool
	)

	defer func() {
		if handle != nil && !committed {
			s.avail.Release(handle)
		}
	}()

	cost := 0
	if p.resourceID != nil {
		h, err := s.avail.TryReserve(ctx, *p.resourceID, p.tr)
		if err != nil {
			switch {
			case errors.Is(err, availability.ErrConflict), errors.Is(err, availability.ErrMaintenance):
				metrics.ReservationConflicts.Inc()
				return nil, ErrResourceUnavailable
			case errors.Is(err, availability.ErrResourceNotFound):
				return nil, ErrBookingNotFound
			default:
				return nil, err
			}
		}
		handle = h

		cost, err = interval.Cost(p.tr, h.Resource.HourlyCost, s.opts.BillingUnit)
		if err != nil {
			return nil, err
		}
	}

	booking := &model.Booking{
		ID:              uuid.New(),
		AccountID:       p.accountID,
		ResourceID:      p.resourceID,
		Kind:            p.kind,
		StartsAt:        p.tr.Start,
		EndsAt:          p.tr.End,
		Status:          p.status,
		TokensCost:      cost,
		ParentBookingID: p.parentID,
		Notes:           p.notes,
	}

	charged := false
	if cost > 0 {
		if _, err := s.ledger.Charge(ctx, p.accountID, cost, model.TxReasonBookingCharge, &booking.ID); err != nil {
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				metrics.InsufficientBalance.Inc()
			}
			return nil, err
		}
		charged = true
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		// Списание уже проведено — компенсируем возвратом.
		// Неудача самой компенсации — фатальное состояние консистентности.
		if charged {
			if _, rerr := s.ledger.Refund(ctx, p.accountID, cost, model.TxReasonBookingRefund, &booking.ID); rerr != nil {
				metrics.LedgerInconsistencies.Inc()
				logger.ErrorLogger.WithError(rerr).
					WithField("booking_id", booking.ID).
					WithField("account_id", p.accountID).
					Error("FATAL: charge compensation failed, manual audit required")
			}
		}
		return nil, err
	}

	committed = true
	s.avail.Commit(handle)
	return booking, nil
}

// ConfirmBooking подтверждает pending-бронирование (ресепшен).
// Повторное подтверждение возвращает текущую запись без ошибки.
func (s *BookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.BookingStatusConfirmed {
		return booking, nil
	}
	if booking.Status != model.BookingStatusPending {
		return nil, ErrInvalidStateTransition
	}

	booking.Status = model.BookingStatusConfirmed
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventTypeBookingConfirmed, booking, nil)
	return booking, nil
}

// CancelBooking отменяет бронирование: освобождает интервал,
// делает ровно один возврат (если было списание) и транзитивно
// отменяет дочерние бронирования каскада (fail-soft).
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*model.Booking, []CascadeFailure, error) {
	// Мьютекс берётся только на родителя: каскад берёт мьютексы детей,
	// дети никогда не отменяют родителя, цикла нет.
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if booking.Status.Terminal() {
		return nil, nil, ErrInvalidStateTransition
	}

	if err := s.refundOnce(ctx, booking); err != nil {
		return nil, nil, err
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancelReason = &reason
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, nil, err
	}

	metrics.BookingsCancelled.Inc()

	// Отмена дочерних: ошибка одного ребёнка не блокирует остальных.
	failures := s.cascadeCancel(ctx, booking, reason)

	s.emit(ctx, model.EventTypeBookingCancelled, booking, map[string]any{
		"reason":           reason,
		"cascade_failures": len(failures),
	})

	return booking, failures, nil
}

// CheckIn отмечает приход в зал. Допускается только в пределах
// окна: от (StartsAt - grace) до конца интервала.
func (s *BookingService) CheckIn(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.BookingStatusCheckedIn {
		return booking, nil
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, ErrInvalidStateTransition
	}

	now := s.opts.Now()
	if now.Before(booking.StartsAt.Add(-s.opts.CheckInGrace)) || !now.Before(booking.EndsAt) {
		return nil, ErrOutOfWindow
	}

	booking.Status = model.BookingStatusCheckedIn
	booking.CheckInTime = &now
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventTypeBookingCheckedIn, booking, nil)
	return booking, nil
}

// CheckOut завершает посещение. Токены не двигаются: стоимость
// списана при создании, а не по факту завершения.
func (s *BookingService) CheckOut(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.BookingStatusCompleted {
		return booking, nil
	}
	if booking.Status != model.BookingStatusCheckedIn {
		return nil, ErrInvalidStateTransition
	}

	now := s.opts.Now()
	booking.Status = model.BookingStatusCompleted
	booking.CheckOutTime = &now
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.emit(ctx, model.EventTypeBookingCompleted, booking, nil)
	return booking, nil
}

// GetBooking возвращает бронирование по ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return s.get(ctx, id)
}

// ListUserBookings — бронирования счёта, новые первыми.
func (s *BookingService) ListUserBookings(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Booking, int64, error) {
	return s.bookings.ListByAccount(ctx, accountID.String(), limit, offset)
}

// ListResourceBookings — бронирования ресурса, пересекающие период [from, to).
func (s *BookingService) ListResourceBookings(ctx context.Context, resourceID uuid.UUID, from, to time.Time, limit, offset int) ([]model.Booking, int64, error) {
	return s.bookings.ListByResourceRange(ctx, resourceID.String(), from, to, limit, offset)
}

// IsResourceFree — консультативная проверка занятости интервала.
func (s *BookingService) IsResourceFree(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (bool, error) {
	tr, err := interval.NewTimeRange(start, end)
	if err != nil {
		return false, ErrInvalidInterval
	}
	return s.avail.IsFree(ctx, resourceID, tr)
}

// refundOnce возвращает стоимость бронирования ровно один раз:
// только если по бронированию есть списание и ещё нет возврата.
func (s *BookingService) refundOnce(ctx context.Context, booking *model.Booking) error {
	if booking.TokensCost <= 0 {
		return nil
	}

	txs, err := s.ledger.TransactionsForBooking(ctx, booking.ID)
	if err != nil {
		return err
	}

	charged, refunded := false, false
	for _, tx := range txs {
		switch tx.Reason {
		case model.TxReasonBookingCharge:
			charged = true
		case model.TxReasonBookingRefund:
			refunded = true
		}
	}

	if !charged || refunded {
		return nil
	}

	_, err = s.ledger.Refund(ctx, booking.AccountID, booking.TokensCost, model.TxReasonBookingRefund, &booking.ID)
	return err
}

func (s *BookingService) get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// emit пишет событие аудита и публикует его в шину уведомлений.
// Оба действия best-effort: отказ не влияет на исход операции.
func (s *BookingService) emit(ctx context.Context, et model.EventType, booking *model.Booking, extra map[string]any) {
	payload := map[string]any{
		"booking_id": booking.ID.String(),
		"account_id": booking.AccountID.String(),
		"kind":       booking.Kind,
		"status":     booking.Status,
		"starts_at":  booking.StartsAt.Unix(),
		"ends_at":    booking.EndsAt.Unix(),
	}
	if booking.ResourceID != nil {
		payload["resource_id"] = booking.ResourceID.String()
	}
	for k, v := range extra {
		payload[k] = v
	}

	raw, err := json.Marshal(payload)
	if err == nil {
		accountID := booking.AccountID
		bookingID := booking.ID
		ev := &model.Event{
			EventType: et,
			AccountID: &accountID,
			BookingID: &bookingID,
			Payload:   datatypes.JSON(raw),
		}
		if err := s.events.Create(ctx, ev); err != nil {
			logger.ErrorLogger.WithError(err).Error("audit event write failed")
		}
	}

	_ = s.notify.PublishJSON(ctx, string(et), payload)
}
