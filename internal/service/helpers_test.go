package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/availability"
	"github.com/intellifit/gym-core/internal/ledger"
	"github.com/intellifit/gym-core/internal/model"
	"github.com/intellifit/gym-core/internal/notify"
	"github.com/intellifit/gym-core/internal/repository"
)

// Minimal schema for the engine logic (sqlite-friendly).
var testSchema = []string{
	`CREATE TABLE resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		hourly_cost INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE token_accounts (
		id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE token_transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		related_booking_id TEXT,
		balance_after INTEGER NOT NULL,
		created_at DATETIME
	);`,
	`CREATE TABLE bookings (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		resource_id TEXT,
		kind TEXT NOT NULL,
		starts_at DATETIME NOT NULL,
		ends_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		tokens_cost INTEGER NOT NULL DEFAULT 0,
		parent_booking_id TEXT,
		notes TEXT,
		cancel_reason TEXT,
		check_in_time DATETIME,
		check_out_time DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		created_at DATETIME,
		account_id TEXT,
		booking_id TEXT,
		payload TEXT
	);`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// One shared connection: a fresh pool connection would see an
	// empty in-memory database, and concurrent tests need both.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// testClock lets tests move "now" forward deterministically.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var testBase = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	db     *gorm.DB
	svc    *BookingService
	ledger *ledger.Service
	clock  *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	bookings := repository.NewGormBookingRepository(db)
	resources := repository.NewGormResourceRepository(db)
	events := repository.NewGormEventRepository(db)

	ledgerSvc := ledger.New(db)
	avail := availability.NewIndex(resources, bookings)
	clock := &testClock{t: testBase}

	svc := NewBookingService(bookings, events, avail, ledgerSvc, notify.NopPublisher{}, Options{
		BillingUnit:  time.Hour,
		CheckInGrace: 15 * time.Minute,
		Now:          clock.Now,
	})

	return &testEnv{db: db, svc: svc, ledger: ledgerSvc, clock: clock}
}

// at returns a wall-clock time on the test day.
func (e *testEnv) at(hour, min int) time.Time {
	return time.Date(testBase.Year(), testBase.Month(), testBase.Day(), hour, min, 0, 0, time.UTC)
}

func (e *testEnv) seedResource(t *testing.T, kind model.ResourceKind, hourlyCost int, status model.ResourceStatus) uuid.UUID {
	t.Helper()

	res := model.Resource{
		ID:         uuid.New(),
		Kind:       kind,
		Name:       "test resource",
		HourlyCost: hourlyCost,
		Status:     status,
	}
	if err := e.db.Create(&res).Error; err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	return res.ID
}

func (e *testEnv) seedAccount(t *testing.T, balance int) uuid.UUID {
	t.Helper()

	accountID := uuid.New()
	if balance > 0 {
		if _, err := e.ledger.Credit(context.Background(), accountID, balance, model.TxReasonPurchase); err != nil {
			t.Fatalf("seed account: %v", err)
		}
		return accountID
	}
	if err := e.db.Create(&model.TokenAccount{ID: accountID, Balance: 0}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return accountID
}

func (e *testEnv) balance(t *testing.T, accountID uuid.UUID) int {
	t.Helper()

	b, err := e.ledger.Balance(context.Background(), accountID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func (e *testEnv) bookingTxCount(t *testing.T, bookingID uuid.UUID) int {
	t.Helper()

	var n int64
	if err := e.db.Model(&model.TokenTransaction{}).
		Where("related_booking_id = ?", bookingID.String()).
		Count(&n).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return int(n)
}

func (e *testEnv) loadBooking(t *testing.T, id uuid.UUID) model.Booking {
	t.Helper()

	var b model.Booking
	if err := e.db.First(&b, "id = ?", id.String()).Error; err != nil {
		t.Fatalf("load booking: %v", err)
	}
	return b
}

func (e *testEnv) eventCount(t *testing.T, bookingID uuid.UUID, et model.EventType) int {
	t.Helper()

	var n int64
	if err := e.db.Model(&model.Event{}).
		Where("booking_id = ? AND event_type = ?", bookingID.String(), et).
		Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return int(n)
}
