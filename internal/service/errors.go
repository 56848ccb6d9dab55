package service

import "errors"

var (
	// Интервал пуст, перевёрнут или начинается в прошлом.
	ErrInvalidInterval = errors.New("booking: invalid interval")
	// Несогласованный запрос: тип бронирования не соответствует ресурсу.
	ErrInvalidRequest = errors.New("booking: invalid request")
	// Ресурс занят на запрошенном интервале или на обслуживании.
	ErrResourceUnavailable = errors.New("booking: resource unavailable")
	// Переход недопустим из текущего статуса бронирования.
	ErrInvalidStateTransition = errors.New("booking: invalid state transition")
	// Чек-ин вне допустимого окна вокруг начала интервала.
	ErrOutOfWindow = errors.New("booking: check-in out of window")
	// Бронирование не найдено.
	ErrBookingNotFound = errors.New("booking: not found")
)

// CascadeFailure — мягкая ошибка одного дочернего бронирования каскада.
// Родительская операция при этом успешна; отказ только фиксируется.
type CascadeFailure struct {
	ResourceID string `json:"resource_id,omitempty"`
	BookingID  string `json:"booking_id,omitempty"`
	Reason     string `json:"reason"`
}
