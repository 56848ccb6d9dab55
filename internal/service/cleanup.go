package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/intellifit/gym-core/internal/infra/logger"
	"github.com/intellifit/gym-core/internal/model"
)

// Sweeper — фоновая очистка просроченных бронирований:
// отмеченные чек-ином завершаются, неявки отменяются с возвратом токенов.
type Sweeper struct {
	svc      *BookingService
	interval time.Duration
}

const noShowReason = "no-show: booking expired without check-in"

func NewSweeper(svc *BookingService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Run крутит очистку до отмены контекста.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.SweepExpired(ctx); err != nil {
			logger.ErrorLogger.WithError(err).Error("booking cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepExpired обрабатывает один проход очистки.
func (w *Sweeper) SweepExpired(ctx context.Context) error {
	now := w.svc.opts.Now()

	expired, err := w.svc.bookings.ListExpired(ctx, now)
	if err != nil {
		return err
	}

	completed, noShows := 0, 0
	for _, b := range expired {
		booking := b
		if booking.CheckInTime != nil {
			if err := w.completeExpired(ctx, booking.ID, now); err != nil {
				logger.ErrorLogger.WithError(err).
					WithField("booking_id", booking.ID).
					Error("cleanup: complete failed")
				continue
			}
			completed++
			continue
		}

		// Неявка: обычный путь отмены с возвратом и каскадом.
		if _, _, err := w.svc.CancelBooking(ctx, booking.ID, noShowReason); err != nil {
			logger.ErrorLogger.WithError(err).
				WithField("booking_id", booking.ID).
				Error("cleanup: no-show cancel failed")
			continue
		}
		noShows++
	}

	if completed > 0 || noShows > 0 {
		logger.InfoLogger.WithField("completed", completed).
			WithField("no_shows", noShows).
			Info("booking cleanup pass finished")
	}
	return nil
}

// completeExpired завершает просроченное checked_in-бронирование под
// мьютексом бронирования, перечитав статус: параллельная отмена или
// чек-аут могли успеть раньше.
func (w *Sweeper) completeExpired(ctx context.Context, id uuid.UUID, now time.Time) error {
	unlock := w.svc.locks.Lock(id)
	defer unlock()

	booking, err := w.svc.get(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingStatusCheckedIn {
		return nil
	}

	booking.Status = model.BookingStatusCompleted
	booking.CheckOutTime = &now
	if err := w.svc.bookings.Update(ctx, booking); err != nil {
		return err
	}
	w.svc.emit(ctx, model.EventTypeBookingCompleted, booking, nil)
	return nil
}
