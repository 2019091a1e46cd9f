// Package world описывает сетку мира: клетки, метаданные мира, выпавшие
// предметы и подключенных игроков. Мир не синхронизирован сам по себе:
// доступ к нему сериализует worldpool.
package world

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
)

// MaxCells - предел площади мира: индексы клеток передаются как uint16
const MaxCells = 1 << 16

var (
	ErrOutOfBounds      = errors.New("клетка вне мира")
	ErrUnknownContent   = errors.New("неизвестный предмет")
	ErrPermissionDenied = errors.New("нет доступа")
	// ErrOccupied - слой клетки уже занят
	ErrOccupied = errors.New("клетка занята")
	// ErrBadSize - недопустимые размеры мира
	ErrBadSize = errors.New("недопустимый размер мира")
)

// NoMainLock - значение MainLock у мира без владельца
const NoMainLock = -1

// Flags - флаги мира
type Flags uint16

const (
	FlagPublic Flags = 1 << iota // Строить может любой игрок
	FlagNoDrop                   // Выбрасывать предметы запрещено
)

// Actor - игрок, подключенный к миру
type Actor interface {
	UserID() int32
	IsOwner(w *World) bool
	HasEditAccess(w *World, x, y int, tool uint16) bool
	CanNoClip() bool
	Send(payload []byte)
}

// World - сетка клеток width x height. Индекс клетки = x + y*width.
type World struct {
	Name   string
	ID     uint32
	Width  int
	Height int
	Flags  Flags
	// Owner - id владельца мира, 0 - ничей
	Owner int32
	// MainLock - индекс клетки мирового замка или NoMainLock
	MainLock    int
	Weather     uint16
	BaseWeather uint16

	tiles        []tile.Tile
	objects      map[uint32]*Object
	nextObjectID uint32
	actors       []Actor

	items  item.Catalog
	now    func() time.Time
	damage map[int]uint8
	dirty  bool
}

// New создает пустой мир
func New(name string, width, height int, items item.Catalog) (*World, error) {
	// Снимок хранит ширину и высоту как uint16
	if width <= 0 || height <= 0 || width > math.MaxUint16 || height > math.MaxUint16 || width*height > MaxCells {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadSize, width, height)
	}

	w := &World{
		Name:         name,
		Width:        width,
		Height:       height,
		MainLock:     NoMainLock,
		tiles:        make([]tile.Tile, width*height),
		objects:      make(map[uint32]*Object),
		nextObjectID: 1,
		items:        items,
		now:          time.Now,
		damage:       make(map[int]uint8),
	}
	for i := range w.tiles {
		w.tiles[i].X = i % width
		w.tiles[i].Y = i / width
	}
	return w, nil
}

// SetClock подменяет источник времени (тесты, воспроизводимость)
func (w *World) SetClock(now func() time.Time) {
	w.now = now
}

// Now возвращает текущее время мира
func (w *World) Now() time.Time {
	return w.now()
}

// Items возвращает каталог предметов мира
func (w *World) Items() item.Catalog {
	return w.items
}

// Lookup ищет метаданные предмета
func (w *World) Lookup(id uint16) (item.Metadata, error) {
	m, ok := w.items.Lookup(id)
	if !ok {
		return item.Metadata{}, fmt.Errorf("%w: %d", ErrUnknownContent, id)
	}
	return m, nil
}

// KindOf возвращает тип предмета или KindNone для неизвестного id
func (w *World) KindOf(id uint16) item.Kind {
	if id == item.Air {
		return item.KindNone
	}
	m, ok := w.items.Lookup(id)
	if !ok {
		return item.KindNone
	}
	return m.Kind
}

// Len возвращает количество клеток
func (w *World) Len() int {
	return len(w.tiles)
}

// InBounds проверяет координаты строго по размерам мира
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.Width && y < w.Height
}

// Index возвращает линейный индекс клетки
func (w *World) Index(x, y int) int {
	return x + y*w.Width
}

// Coords возвращает координаты по индексу
func (w *World) Coords(index int) (x, y int) {
	return index % w.Width, index / w.Width
}

// Get возвращает клетку или false, если координаты вне мира
func (w *World) Get(x, y int) (*tile.Tile, bool) {
	if !w.InBounds(x, y) {
		return nil, false
	}
	return &w.tiles[w.Index(x, y)], true
}

// At возвращает клетку по линейному индексу
func (w *World) At(index int) (*tile.Tile, bool) {
	if index < 0 || index >= len(w.tiles) {
		return nil, false
	}
	return &w.tiles[index], true
}

// Each обходит все клетки в порядке индексов
func (w *World) Each(fn func(index int, t *tile.Tile)) {
	for i := range w.tiles {
		fn(i, &w.tiles[i])
	}
}

// LockAt возвращает клетку замка и его данные по индексу
func (w *World) LockAt(index int) (*tile.Tile, *tile.Lock, bool) {
	t, ok := w.At(index)
	if !ok {
		return nil, nil, false
	}
	l, ok := t.LockData()
	if !ok {
		return nil, nil, false
	}
	return t, l, true
}

// RegionLock возвращает данные замка, которому принадлежит клетка.
// Для самой клетки замка возвращает ее собственные данные.
func (w *World) RegionLock(t *tile.Tile) (*tile.Lock, bool) {
	if l, ok := t.LockData(); ok {
		return l, true
	}
	if t.Parent == 0 || !t.Has(tile.FlagLocked) {
		return nil, false
	}
	_, l, ok := w.LockAt(t.Parent)
	return l, ok
}

// MirrorAccess возвращает список доступа, который замок переносит на клетки
// своей области. Замки с FlagMirrorOwner добавляют в него владельца мира.
func (w *World) MirrorAccess(lockTile *tile.Tile) (tile.AccessList, bool) {
	l, ok := lockTile.LockData()
	if !ok {
		return nil, false
	}
	access := l.Access.Clone()
	if m, ok := w.items.Lookup(lockTile.Foreground); ok && m.Has(item.FlagMirrorOwner) && w.Owner != 0 {
		access.Add(w.Owner)
	}
	return access, true
}

// Release отвязывает от замка все клетки его области. Возвращает их индексы.
func (w *World) Release(lockIndex int) []int {
	// parent == 0 означает "ничья", замок в клетке 0 области не имеет
	if lockIndex == 0 {
		return nil
	}
	var freed []int
	for i := range w.tiles {
		if w.tiles[i].Parent == lockIndex {
			w.tiles[i].Unclaim()
			freed = append(freed, i)
		}
	}
	if len(freed) > 0 {
		w.dirty = true
	}
	return freed
}

// Join добавляет игрока в конец порядка входа
func (w *World) Join(a Actor) {
	w.Leave(a.UserID())
	w.actors = append(w.actors, a)
}

// Leave убирает игрока и сообщает, был ли он в мире
func (w *World) Leave(userID int32) bool {
	i := slices.IndexFunc(w.actors, func(a Actor) bool { return a.UserID() == userID })
	if i < 0 {
		return false
	}
	w.actors = slices.Delete(w.actors, i, i+1)
	return true
}

// Actors возвращает копию списка игроков в порядке входа
func (w *World) Actors() []Actor {
	return slices.Clone(w.actors)
}

// ActorCount возвращает количество игроков в мире
func (w *World) ActorCount() int {
	return len(w.actors)
}

// Broadcast вызывает fn для каждого игрока в порядке входа
func (w *World) Broadcast(fn func(a Actor)) {
	for _, a := range w.actors {
		fn(a)
	}
}

// SendAll отправляет пакет всем игрокам мира
func (w *World) SendAll(payload []byte) {
	if payload == nil {
		return
	}
	w.Broadcast(func(a Actor) { a.Send(payload) })
}

// MarkDirty помечает мир как измененный с последнего сохранения
func (w *World) MarkDirty() {
	w.dirty = true
}

// Dirty сообщает, нужно ли сохранять мир
func (w *World) Dirty() bool {
	return w.dirty
}

// ClearDirty сбрасывает признак изменений после сохранения
func (w *World) ClearDirty() {
	w.dirty = false
}
