package availability

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/intellifit/gym-core/internal/interval"
	"github.com/intellifit/gym-core/internal/locker"
	"github.com/intellifit/gym-core/internal/model"
	"github.com/intellifit/gym-core/internal/repository"
)

var (
	ErrConflict         = errors.New("availability: interval conflict")
	ErrMaintenance      = errors.New("availability: resource under maintenance")
	ErrResourceNotFound = errors.New("availability: resource not found")
)

// ReservationHandle — провизорная бронь интервала.
// Держит интервал занятым до Commit (бронирование записано в БД)
// или Release (откат, например при неудачном списании токенов).
type ReservationHandle struct {
	ID         uuid.UUID
	ResourceID uuid.UUID
	Range      interval.TimeRange

	// Ресурс, под который взята бронь (для расчёта стоимости).
	Resource *model.Resource
}

// Index отвечает на вопрос «свободен ли ресурс R на интервале [s,e)».
// Авторитет по занятости: активные бронирования в БД плюс провизорные
// брони в памяти. Все попытки брони одного ресурса сериализуются
// поключевым мьютексом; разные ресурсы не блокируют друг друга.
type Index struct {
	resources repository.ResourceRepository
	bookings  repository.BookingRepository
	locks     *locker.KeyedMutex

	mu    sync.Mutex
	holds map[uuid.UUID]map[uuid.UUID]interval.TimeRange // resourceID -> holdID -> интервал
}

func NewIndex(resources repository.ResourceRepository, bookings repository.BookingRepository) *Index {
	return &Index{
		resources: resources,
		bookings:  bookings,
		locks:     locker.New(),
		holds:     make(map[uuid.UUID]map[uuid.UUID]interval.TimeRange),
	}
}

// TryReserve атомарно (относительно конкурентных вызовов по тому же
// ресурсу) проверяет интервал и берёт провизорную бронь.
// Возвращает ErrConflict, если интервал пересекается с активным
// бронированием или чужой провизорной бронью,
// и ErrMaintenance для оборудования на обслуживании.
func (ix *Index) TryReserve(
	ctx context.Context,
	resourceID uuid.UUID,
	tr interval.TimeRange,
) (*ReservationHandle, error) {
	unlock := ix.locks.Lock(resourceID)
	defer unlock()

	res, err := ix.resources.GetByID(ctx, resourceID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	if res.InMaintenance() {
		return nil, ErrMaintenance
	}

	existing, err := ix.bookings.ListActiveOverlapping(ctx, resourceID.String(), tr)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrConflict
	}

	if ix.holdsOverlap(resourceID, tr) {
		return nil, ErrConflict
	}

	h := &ReservationHandle{
		ID:         uuid.New(),
		ResourceID: resourceID,
		Range:      tr,
		Resource:   res,
	}
	ix.addHold(h)
	return h, nil
}

// Commit снимает провизорную бронь после того, как бронирование
// записано в БД: с этого момента интервал держит сама запись.
func (ix *Index) Commit(h *ReservationHandle) {
	if h == nil {
		return
	}
	ix.removeHold(h)
}

// Release откатывает провизорную бронь: интервал снова свободен.
// Вызывается, когда следующий шаг (списание, запись) не удался.
func (ix *Index) Release(h *ReservationHandle) {
	if h == nil {
		return
	}
	ix.removeHold(h)
}

// IsFree — консультативная (необязывающая) проверка занятости.
func (ix *Index) IsFree(ctx context.Context, resourceID uuid.UUID, tr interval.TimeRange) (bool, error) {
	existing, err := ix.bookings.ListActiveOverlapping(ctx, resourceID.String(), tr)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	return !ix.holdsOverlap(resourceID, tr), nil
}

func (ix *Index) holdsOverlap(resourceID uuid.UUID, tr interval.TimeRange) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, held := range ix.holds[resourceID] {
		if tr.Overlaps(held) {
			return true
		}
	}
	return false
}

func (ix *Index) addHold(h *ReservationHandle) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	byResource := ix.holds[h.ResourceID]
	if byResource == nil {
		byResource = make(map[uuid.UUID]interval.TimeRange)
		ix.holds[h.ResourceID] = byResource
	}
	byResource[h.ID] = h.Range
}

func (ix *Index) removeHold(h *ReservationHandle) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if byResource, ok := ix.holds[h.ResourceID]; ok {
		delete(byResource, h.ID)
		if len(byResource) == 0 {
			delete(ix.holds, h.ResourceID)
		}
	}
}
