package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Тип бронирования.
type BookingKind string

const (
	BookingKindEquipment    BookingKind = "equipment"
	BookingKindCoachSession BookingKind = "coach_session"
	// Бронирование услуги без физического ресурса (например, InBody-замер).
	BookingKindServiceOnly BookingKind = "service_only"
)

// bookings
type Booking struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`

	// NULL для service_only-бронирований.
	ResourceID *uuid.UUID `gorm:"type:uuid;index"`

	Kind BookingKind `gorm:"type:varchar(32);not null;index"`

	// Полуоткрытый интервал [StartsAt, EndsAt), всегда в UTC.
	StartsAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
	EndsAt   time.Time `gorm:"type:timestamp with time zone;not null"`

	Status BookingStatus `gorm:"type:varchar(32);not null;index"`

	TokensCost int `gorm:"not null;default:0"`

	// Заполняется у дочерних бронирований авто-каскада.
	ParentBookingID *uuid.UUID `gorm:"type:uuid;index"`

	Notes        string  `gorm:"type:text"`
	CancelReason *string `gorm:"type:text"`

	CheckInTime  *time.Time `gorm:"type:timestamp with time zone"`
	CheckOutTime *time.Time `gorm:"type:timestamp with time zone"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	// Навигационные поля (опционально, но удобно для Preload).
	Resource *Resource `gorm:"foreignKey:ResourceID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Parent   *Booking  `gorm:"foreignKey:ParentBookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// Active — статусы, занимающие интервал ресурса.
func (s BookingStatus) Active() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn:
		return true
	}
	return false
}

// Terminal — из этих статусов переходов нет.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// ActiveBookingStatuses — для запросов по занятости ресурса.
func ActiveBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusCheckedIn,
	}
}
