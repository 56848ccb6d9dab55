package locker

import (
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex сериализует операции по ключу (ресурс, счёт),
// не блокируя операции с разными ключами. Мьютексы создаются
// лениво и не освобождаются: число ресурсов и счетов ограничено.
type KeyedMutex struct {
	mu sync.Map // uuid.UUID -> *sync.Mutex
}

func New() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock захватывает мьютекс ключа и возвращает функцию разблокировки.
func (k *KeyedMutex) Lock(key uuid.UUID) func() {
	v, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
