package model

import (
	"time"

	"github.com/google/uuid"
)

// Тип бронируемого ресурса.
type ResourceKind string

const (
	ResourceKindEquipment ResourceKind = "equipment"
	ResourceKindCoachSlot ResourceKind = "coach_slot"
)

// Статус ресурса (только для оборудования; тренеры всегда available).
type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "available"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
)

// resources — каталог бронируемых единиц (оборудование, слоты тренеров).
// Движок бронирования читает каталог, но не управляет им.
type Resource struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	Kind ResourceKind `gorm:"type:varchar(32);not null;index"`

	// Имя/отображаемое название в интерфейсе.
	Name string `gorm:"type:varchar(255);not null"`

	// Стоимость часа в токенах.
	HourlyCost int `gorm:"not null;default:0"`

	Status ResourceStatus `gorm:"type:varchar(32);not null;default:'available';index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// InMaintenance — оборудование на обслуживании бронировать нельзя.
func (r *Resource) InMaintenance() bool {
	return r.Kind == ResourceKindEquipment && r.Status == ResourceStatusMaintenance
}
