package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/interval"
	"github.com/intellifit/gym-core/internal/model"
)

type BookingRepository interface {
	// Создать новое бронирование.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронирование по ID.
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// Сохранить изменённое бронирование (статус, отметки времени).
	Update(ctx context.Context, booking *model.Booking) error
	// Активные бронирования ресурса, пересекающие интервал.
	ListActiveOverlapping(ctx context.Context, resourceID string, tr interval.TimeRange) ([]model.Booking, error)
	// Список бронирований счёта с пагинацией.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Booking, int64, error)
	// Бронирования ресурса за период.
	ListByResourceRange(ctx context.Context, resourceID string, from, to time.Time, limit, offset int) ([]model.Booking, int64, error)
	// Активные дочерние бронирования каскада.
	ListActiveChildren(ctx context.Context, parentID string) ([]model.Booking, error)
	// Активные бронирования, чей интервал уже закончился (для фоновой очистки).
	ListExpired(ctx context.Context, now time.Time) ([]model.Booking, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(booking).Error
}

func (r *GormBookingRepository) ListActiveOverlapping(
	ctx context.Context,
	resourceID string,
	tr interval.TimeRange,
) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("resource_id = ?", resourceID).
		Where("status IN ?", model.ActiveBookingStatuses()).
		// Полуоткрытые интервалы: пересечение, если s1 < e2 AND s2 < e1.
		Where("starts_at < ? AND ends_at > ?", tr.End, tr.Start).
		Order("starts_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListByAccount(
	ctx context.Context,
	accountID string,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("account_id = ?", accountID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("starts_at DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *GormBookingRepository) ListByResourceRange(
	ctx context.Context,
	resourceID string,
	from, to time.Time,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("resource_id = ?", resourceID).
		Where("starts_at < ? AND ends_at > ?", to, from)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("starts_at ASC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *GormBookingRepository) ListActiveChildren(ctx context.Context, parentID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("parent_booking_id = ?", parentID).
		Where("status IN ?", model.ActiveBookingStatuses()).
		Order("created_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormBookingRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("ends_at < ?", now).
		Where("status IN ?", model.ActiveBookingStatuses()).
		Order("ends_at ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
