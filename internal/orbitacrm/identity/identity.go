// Явный контекст действующей личности (acting identity).
//
// Слот создаётся на каждый запрос и передаётся в резолвер аутентификации
// вместо глобального состояния: побочные эффекты неудачной или системной
// ветки входа выполняются от имени известной учётной записи, а параллельные
// запросы не могут перезаписать личность друг друга.
package identity

import (
	"sync"

	"github.com/orbita-it/orbitacrm/internal/orbitacrm/dao"
)

type Slot struct {
	mu      sync.RWMutex
	current *dao.User
}

func NewSlot() *Slot {
	return &Slot{}
}

func (s *Slot) Set(u *dao.User) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
}

func (s *Slot) Current() *dao.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
