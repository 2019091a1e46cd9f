package actor

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound  = errors.New("сессия не найдена")
	ErrDuplicate = errors.New("игрок уже подключен")
)

// Registry хранит активные сессии по идентификатору
type Registry struct {
	sessions map[string]*Session
	byUser   map[int32]string
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byUser:   make(map[int32]string),
	}
}

// Add регистрирует сессию. Один игрок - одна сессия.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUser[s.User]; exists {
		return ErrDuplicate
	}
	r.sessions[s.ID] = s
	r.byUser[s.User] = s.ID
	return nil
}

// Get возвращает сессию по идентификатору
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return s, nil
}

// ByUser возвращает сессию игрока
func (r *Registry) ByUser(user int32) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byUser[user]
	if !exists {
		return nil, ErrNotFound
	}
	return r.sessions[id], nil
}

// Remove удаляет сессию из реестра
func (r *Registry) Remove(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	delete(r.sessions, id)
	delete(r.byUser, s.User)
	return s, nil
}

// All возвращает все сессии, упорядоченные по id игрока
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}

// Len возвращает число сессий
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
