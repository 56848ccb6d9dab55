package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Тип события жизненного цикла бронирования.
// Значения совпадают с routing key в шине уведомлений.
type EventType string

const (
	EventTypeBookingCreated   EventType = "booking.created"
	EventTypeBookingConfirmed EventType = "booking.confirmed"
	EventTypeBookingCheckedIn EventType = "booking.checked_in"
	EventTypeBookingCompleted EventType = "booking.completed"
	EventTypeBookingCancelled EventType = "booking.cancelled"
)

// events — события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`

	AccountID *uuid.UUID `gorm:"type:uuid;index"`
	BookingID *uuid.UUID `gorm:"type:uuid;index"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	// Навигационные поля
	Booking *Booking `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
