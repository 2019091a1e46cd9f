// Package worldpool владеет загруженными мирами. Каждый мир защищен своим
// RW-мьютексом: все изменения мира идут через Handle.Update, чтение через
// Handle.View. Порядок захвата: сначала мьютекс пула, затем мира.
package worldpool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/metrics"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
)

// ErrNotLoaded - мир не загружен в пул
var ErrNotLoaded = errors.New("мир не загружен")

// ErrUnloaded - мир выгружен между поиском и захватом дескриптора
var ErrUnloaded = errors.New("мир выгружен")

// GenerateFunc создает новый мир, если его нет в хранилище
type GenerateFunc func(name string) (*world.World, error)

// asyncSaver - хранилище с фоновым сохранением
type asyncSaver interface {
	SaveAsync(name string, snapshot []byte) error
}

// Options - зависимости пула
type Options struct {
	Items    item.Catalog
	Store    storage.SnapshotStore
	Generate GenerateFunc
	Logger   *zap.SugaredLogger
}

// Handle - загруженный мир и его мьютекс
type Handle struct {
	name     string
	mu       sync.RWMutex
	w        *world.World
	unloaded bool
}

func (h *Handle) Name() string { return h.name }

// Update выполняет fn с исключительным доступом к миру
func (h *Handle) Update(fn func(w *world.World) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	return fn(h.w)
}

// View выполняет fn с доступом на чтение. fn не должна менять мир.
func (h *Handle) View(fn func(w *world.World) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.unloaded {
		return ErrUnloaded
	}
	return fn(h.w)
}

// Info - сводка о мире для администрирования
type Info struct {
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Owner   int32  `json:"owner"`
	Players int    `json:"players"`
	Objects int    `json:"objects"`
	Weather uint16 `json:"weather"`
	Dirty   bool   `json:"dirty"`
}

// Info возвращает сводку о мире
func (h *Handle) Info() (Info, error) {
	var info Info
	err := h.View(func(w *world.World) error {
		info = Info{
			Name:    w.Name,
			Width:   w.Width,
			Height:  w.Height,
			Owner:   w.Owner,
			Players: w.ActorCount(),
			Objects: len(w.Objects()),
			Weather: w.Weather,
			Dirty:   w.Dirty(),
		}
		return nil
	})
	return info, err
}

// Pool - набор загруженных миров по имени
type Pool struct {
	mu     sync.Mutex
	worlds map[string]*Handle

	items    item.Catalog
	store    storage.SnapshotStore
	generate GenerateFunc
	log      *zap.SugaredLogger
}

// New создает пул
func New(opts Options) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pool{
		worlds:   make(map[string]*Handle),
		items:    opts.Items,
		store:    opts.Store,
		generate: opts.Generate,
		log:      logger,
	}
}

// Get возвращает мир, загружая его из хранилища или создавая заново
func (p *Pool) Get(ctx context.Context, name string) (*Handle, error) {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.worlds[name]; ok {
		return h, nil
	}

	w, err := p.load(ctx, name)
	if err != nil {
		return nil, err
	}
	h := &Handle{name: name, w: w}
	p.worlds[name] = h
	metrics.WorldsLoaded.Add(1)
	return h, nil
}

func (p *Pool) load(ctx context.Context, name string) (*world.World, error) {
	if p.store != nil {
		raw, err := p.store.Load(ctx, name)
		switch {
		case err == nil:
			w, err := world.Restore(raw, p.items)
			if err != nil {
				return nil, fmt.Errorf("восстановление мира %s: %w", name, err)
			}
			p.log.Infow("мир загружен", "world", name, "bytes", len(raw))
			return w, nil
		case !errors.Is(err, storage.ErrSnapshotNotFound):
			return nil, fmt.Errorf("загрузка мира %s: %w", name, err)
		}
	}

	if p.generate == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrSnapshotNotFound, name)
	}
	w, err := p.generate(name)
	if err != nil {
		return nil, fmt.Errorf("генерация мира %s: %w", name, err)
	}
	p.log.Infow("мир создан", "world", name, "width", w.Width, "height", w.Height)
	return w, nil
}

// Loaded возвращает мир, только если он уже загружен
func (p *Pool) Loaded(name string) (*Handle, bool) {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.worlds[name]
	return h, ok
}

// Join добавляет игрока в мир и возвращает пакет полного мира для него
func (p *Pool) Join(ctx context.Context, name string, a world.Actor) (*Handle, []byte, error) {
	for {
		h, err := p.Get(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		var payload []byte
		err = h.Update(func(w *world.World) error {
			w.Join(a)
			payload = w.WorldPayload()
			return nil
		})
		if errors.Is(err, ErrUnloaded) {
			// Мир выгрузили между Get и Update: загружаем заново
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		p.log.Debugw("игрок вошел в мир", "world", h.name, "user", a.UserID())
		return h, payload, nil
	}
}

// Leave убирает игрока из мира. Мир без игроков сохраняется и выгружается.
func (p *Pool) Leave(ctx context.Context, name string, userID int32) error {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.worlds[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.w.Leave(userID)
	if h.w.ActorCount() > 0 {
		return nil
	}

	if h.w.Dirty() {
		if err := p.persistLocked(ctx, h.w, true); err != nil {
			// Мир остается в памяти, чтобы не потерять изменения
			return err
		}
	}
	h.unloaded = true
	delete(p.worlds, name)
	p.log.Infow("мир выгружен", "world", name)
	return nil
}

// persistLocked сохраняет мир, мьютекс которого уже захвачен на запись
func (p *Pool) persistLocked(ctx context.Context, w *world.World, async bool) error {
	if p.store == nil {
		w.ClearDirty()
		return nil
	}
	data := w.Snapshot()
	if as, ok := p.store.(asyncSaver); ok && async {
		if err := as.SaveAsync(w.Name, data); err != nil {
			return fmt.Errorf("сохранение мира %s: %w", w.Name, err)
		}
	} else if err := p.store.Save(ctx, w.Name, data); err != nil {
		return fmt.Errorf("сохранение мира %s: %w", w.Name, err)
	}
	w.ClearDirty()
	return nil
}

// Save сохраняет мир, если он загружен
func (p *Pool) Save(ctx context.Context, name string) error {
	h, ok := p.Loaded(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	return h.Update(func(w *world.World) error {
		return p.persistLocked(ctx, w, false)
	})
}

// SaveDirty сохраняет все измененные миры и возвращает их число
func (p *Pool) SaveDirty(ctx context.Context) (int, error) {
	var (
		saved int
		errs  []error
	)
	for _, h := range p.handles() {
		err := h.Update(func(w *world.World) error {
			if !w.Dirty() {
				return nil
			}
			if err := p.persistLocked(ctx, w, true); err != nil {
				return err
			}
			saved++
			return nil
		})
		if err != nil && !errors.Is(err, ErrUnloaded) {
			errs = append(errs, err)
		}
	}
	return saved, errors.Join(errs...)
}

// Each вызывает fn для каждого загруженного мира в порядке имен
func (p *Pool) Each(fn func(h *Handle)) {
	for _, h := range p.handles() {
		fn(h)
	}
}

// Names возвращает имена загруженных миров
func (p *Pool) Names() []string {
	hs := p.handles()
	names := make([]string, len(hs))
	for i, h := range hs {
		names[i] = h.name
	}
	return names
}

// Len возвращает число загруженных миров
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.worlds)
}

func (p *Pool) handles() []*Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Handle, 0, len(p.worlds))
	for _, h := range p.worlds {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Close синхронно сохраняет все измененные миры и выгружает их
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, h := range p.worlds {
		h.mu.Lock()
		if h.w.Dirty() {
			if err := p.persistLocked(ctx, h.w, false); err != nil {
				errs = append(errs, err)
			}
		}
		h.unloaded = true
		h.mu.Unlock()
		delete(p.worlds, name)
	}
	return errors.Join(errs...)
}
