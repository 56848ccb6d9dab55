package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/locker"
	"github.com/intellifit/gym-core/internal/model"
)

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrAccountNotFound     = errors.New("ledger: account not found")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
)

// Service — журнал токенов: источник истины по балансам.
// Каждая мутация баланса — ровно одна проводка в token_transactions;
// кэш balance в token_accounts обновляется только вместе с ней,
// в одной транзакции БД. Мутации одного счёта сериализуются
// поключевым мьютексом, разные счета работают параллельно.
type Service struct {
	db    *gorm.DB
	locks *locker.KeyedMutex
}

func New(db *gorm.DB) *Service {
	return &Service{db: db, locks: locker.New()}
}

// Charge списывает amount токенов со счёта.
// Если средств не хватает, возвращает ErrInsufficientBalance
// без каких-либо побочных эффектов.
func (s *Service) Charge(
	ctx context.Context,
	accountID uuid.UUID,
	amount int,
	reason model.TransactionReason,
	relatedBookingID *uuid.UUID,
) (uuid.UUID, error) {
	if amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}
	return s.apply(ctx, accountID, -amount, reason, relatedBookingID)
}

// Refund зачисляет amount токенов обратно на счёт.
// Возврат всегда успешен: нижней границы для зачисления нет.
func (s *Service) Refund(
	ctx context.Context,
	accountID uuid.UUID,
	amount int,
	reason model.TransactionReason,
	relatedBookingID *uuid.UUID,
) (uuid.UUID, error) {
	if amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}
	return s.apply(ctx, accountID, amount, reason, relatedBookingID)
}

// Credit зачисляет уже провалидированное пополнение (purchase,
// admin_adjustment). Счёт создаётся при первом пополнении.
func (s *Service) Credit(
	ctx context.Context,
	accountID uuid.UUID,
	amount int,
	reason model.TransactionReason,
) (uuid.UUID, error) {
	if amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	var txID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc model.TokenAccount
		err := tx.First(&acc, "id = ?", accountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			acc = model.TokenAccount{ID: accountID, Balance: 0}
			if err := tx.Create(&acc).Error; err != nil {
				return fmt.Errorf("create account: %w", err)
			}
		} else if err != nil {
			return err
		}

		id, err := appendTransaction(tx, &acc, amount, reason, nil)
		if err != nil {
			return err
		}
		txID = id
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

// Balance возвращает кэшированный баланс счёта.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	var acc model.TokenAccount
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return acc.Balance, nil
}

// ListTransactions возвращает проводки счёта, новые первыми.
func (s *Service) ListTransactions(
	ctx context.Context,
	accountID uuid.UUID,
	limit, offset int,
) ([]model.TokenTransaction, int64, error) {
	var (
		txs   []model.TokenTransaction
		total int64
	)

	q := s.db.WithContext(ctx).
		Model(&model.TokenTransaction{}).
		Where("account_id = ?", accountID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

// TransactionsForBooking возвращает проводки, связанные с бронированием
// (списание и, после отмены, возврат), в хронологическом порядке.
func (s *Service) TransactionsForBooking(ctx context.Context, bookingID uuid.UUID) ([]model.TokenTransaction, error) {
	var txs []model.TokenTransaction
	err := s.db.WithContext(ctx).
		Model(&model.TokenTransaction{}).
		Where("related_booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// Recompute заново проигрывает журнал и чинит кэш баланса,
// если тот разошёлся с суммой проводок. Возвращает итоговый баланс.
func (s *Service) Recompute(ctx context.Context, accountID uuid.UUID) (int, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc model.TokenAccount
		if err := tx.First(&acc, "id = ?", accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		var sum struct{ Total int }
		if err := tx.Model(&model.TokenTransaction{}).
			Select("COALESCE(SUM(amount), 0) AS total").
			Where("account_id = ?", accountID).
			Scan(&sum).Error; err != nil {
			return err
		}

		balance = sum.Total
		if acc.Balance == balance {
			return nil
		}

		acc.Balance = balance
		acc.UpdatedAt = time.Now().UTC()
		return tx.Save(&acc).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// apply проводит движение delta по счёту в одной транзакции БД
// под поключевым мьютексом счёта.
func (s *Service) apply(
	ctx context.Context,
	accountID uuid.UUID,
	delta int,
	reason model.TransactionReason,
	relatedBookingID *uuid.UUID,
) (uuid.UUID, error) {
	unlock := s.locks.Lock(accountID)
	defer unlock()

	var txID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc model.TokenAccount
		if err := tx.First(&acc, "id = ?", accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		if delta < 0 && acc.Balance+delta < 0 {
			return ErrInsufficientBalance
		}

		id, err := appendTransaction(tx, &acc, delta, reason, relatedBookingID)
		if err != nil {
			return err
		}
		txID = id
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

// appendTransaction добавляет проводку и синхронно обновляет кэш баланса.
func appendTransaction(
	tx *gorm.DB,
	acc *model.TokenAccount,
	delta int,
	reason model.TransactionReason,
	relatedBookingID *uuid.UUID,
) (uuid.UUID, error) {
	now := time.Now().UTC()

	row := model.TokenTransaction{
		ID:               uuid.New(),
		AccountID:        acc.ID,
		Amount:           delta,
		Reason:           reason,
		RelatedBookingID: relatedBookingID,
		BalanceAfter:     acc.Balance + delta,
		CreatedAt:        now,
	}
	if err := tx.Create(&row).Error; err != nil {
		return uuid.Nil, fmt.Errorf("append transaction: %w", err)
	}

	acc.Balance = row.BalanceAfter
	acc.UpdatedAt = now
	if err := tx.Save(acc).Error; err != nil {
		return uuid.Nil, fmt.Errorf("update balance: %w", err)
	}

	return row.ID, nil
}
