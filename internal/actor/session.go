// Package actor описывает сессии подключенных игроков: права в мире,
// позицию и очереди исходящих пакетов.
package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

// DefaultQueueSize - емкость каждой очереди исходящих пакетов
const DefaultQueueSize = 1024

// ErrSessionClosed - сессия закрыта, пакетов больше не будет
var ErrSessionClosed = errors.New("сессия закрыта")

// Role - роль игрока на сервере
type Role uint8

const (
	RolePlayer Role = iota
	// RoleModerator строит где угодно и проходит сквозь стены
	RoleModerator
)

// Session - подключенный игрок. Реализует world.Actor.
type Session struct {
	ID   string
	User int32
	Name string
	Role Role

	mu    sync.Mutex
	world string
	x, y  int

	// Очереди отправки: снимки мира и уведомления идут вперед обычных пакетов
	highQueue   chan []byte
	normalQueue chan []byte
	done        chan struct{}
	closeOnce   sync.Once

	dropped atomic.Int64
}

var _ world.Actor = (*Session)(nil)

// New создает сессию с новым идентификатором
func New(user int32, name string, role Role, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		ID:          uuid.New().String(),
		User:        user,
		Name:        name,
		Role:        role,
		highQueue:   make(chan []byte, queueSize),
		normalQueue: make(chan []byte, queueSize),
		done:        make(chan struct{}),
	}
}

func (s *Session) UserID() int32 { return s.User }

// IsOwner - игрок владеет миром
func (s *Session) IsOwner(w *world.World) bool {
	return w.Owner != 0 && w.Owner == s.User
}

// CanNoClip - модераторы проходят сквозь препятствия
func (s *Session) CanNoClip() bool {
	return s.Role == RoleModerator
}

// HasEditAccess проверяет право строить и ломать в клетке (x, y).
// Клетка под замком доступна владельцу замка, списку доступа и всем, если
// она общедоступна. Вне замков решает мировой замок.
func (s *Session) HasEditAccess(w *world.World, x, y int, _ uint16) bool {
	t, ok := w.Get(x, y)
	if !ok {
		return false
	}
	if s.Role == RoleModerator || s.IsOwner(w) {
		return true
	}

	if l, ok := w.RegionLock(t); ok {
		return l.Owner == s.User || l.Access.Contains(s.User) ||
			t.Access.Contains(s.User) || t.Has(tile.FlagPublic)
	}

	if w.Owner == 0 || w.Flags&world.FlagPublic != 0 {
		return true
	}
	if _, l, ok := w.LockAt(w.MainLock); ok {
		return l.Access.Contains(s.User)
	}
	return false
}

// Send ставит пакет в очередь без блокировки. При переполнении пакет
// отбрасывается.
func (s *Session) Send(payload []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	q := s.normalQueue
	if len(payload) > 0 {
		switch packet.Kind(payload[0]) {
		case packet.KindWorldSnapshot, packet.KindNotice:
			q = s.highQueue
		}
	}
	select {
	case q <- payload:
	default:
		s.dropped.Add(1)
	}
}

// Next возвращает следующий пакет, отдавая приоритет высокой очереди.
// Блокируется до появления пакета, закрытия сессии или отмены ctx.
func (s *Session) Next(ctx context.Context) ([]byte, error) {
	select {
	case p := <-s.highQueue:
		return p, nil
	default:
	}

	select {
	case p := <-s.highQueue:
		return p, nil
	case p := <-s.normalQueue:
		return p, nil
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close завершает сессию; ожидающие Next получают ErrSessionClosed
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done закрывается вместе с сессией
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Dropped - число пакетов, отброшенных из-за переполнения
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// World возвращает имя мира, в котором находится игрок
func (s *Session) World() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// SetWorld запоминает мир и точку появления
func (s *Session) SetWorld(name string, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = name
	s.x, s.y = x, y
}

// Position возвращает клетку игрока
func (s *Session) Position() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// MoveTo обновляет клетку игрока
func (s *Session) MoveTo(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y = x, y
}
