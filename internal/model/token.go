package model

import (
	"time"

	"github.com/google/uuid"
)

// Причина движения токенов.
type TransactionReason string

const (
	TxReasonBookingCharge   TransactionReason = "booking_charge"
	TxReasonBookingRefund   TransactionReason = "booking_refund"
	TxReasonPurchase        TransactionReason = "purchase"
	TxReasonAdminAdjustment TransactionReason = "admin_adjustment"
)

// token_accounts — кэш текущего баланса участника.
// Источник истины — журнал token_transactions; баланс всегда равен
// сумме его проводок и восстанавливается повторным проигрыванием журнала.
type TokenAccount struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Balance int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// token_transactions — append-only журнал движений токенов.
// Записи неизменяемы: исправления делаются новой проводкой, не правкой.
type TokenTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_token_tx_account_created,priority:1"`

	// Знаковая величина: отрицательная — списание, положительная — зачисление.
	Amount int `gorm:"not null"`

	Reason TransactionReason `gorm:"type:varchar(32);not null;index"`

	RelatedBookingID *uuid.UUID `gorm:"type:uuid;index"`

	// Баланс счёта после применения проводки.
	BalanceAfter int `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now();index:idx_token_tx_account_created,priority:2"`

	Account *TokenAccount `gorm:"foreignKey:AccountID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Booking *Booking      `gorm:"foreignKey:RelatedBookingID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
