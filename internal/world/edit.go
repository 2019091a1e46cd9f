package world

import (
	"fmt"
	"math"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
)

// TileUpdate собирает пакет обновления одной клетки
func (w *World) TileUpdate(x, y int) []byte {
	t, ok := w.Get(x, y)
	if !ok {
		return nil
	}
	pw := packet.New(packet.KindTileUpdate, 24)
	pw.U16(uint16(x))
	pw.U16(uint16(y))
	w.wireCodec().Encode(pw, t)
	return pw.Bytes()
}

// TileBatch собирает пакетное обновление клеток по индексам
func (w *World) TileBatch(indices []int) []byte {
	if len(indices) == 0 {
		return nil
	}
	codec := w.wireCodec()
	pw := packet.New(packet.KindTileBatch, 2+len(indices)*16)
	pw.U16(uint16(len(indices)))
	for _, i := range indices {
		t := &w.tiles[i]
		pw.U16(uint16(t.X))
		pw.U16(uint16(t.Y))
		codec.Encode(pw, t)
	}
	return pw.Bytes()
}

func (w *World) wireCodec() tile.Codec {
	return tile.Codec{Mode: tile.ModeWire, Now: w.now}
}

// CheckPlace проверяет, можно ли поставить предмет в клетку, ничего не меняя
func (w *World) CheckPlace(a Actor, x, y int, meta item.Metadata) (*tile.Tile, error) {
	t, ok := w.Get(x, y)
	if !ok {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	if !a.HasEditAccess(w, x, y, meta.ID) {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrPermissionDenied, x, y)
	}
	if meta.Kind == item.KindBackground {
		if t.Background != 0 {
			return nil, ErrOccupied
		}
		return t, nil
	}
	if t.Foreground != 0 {
		return nil, ErrOccupied
	}
	// Замок - всегда корень своей области, в чужую область его не поставить
	if meta.Kind.IsLock() && t.Parent != 0 {
		return nil, fmt.Errorf("%w: (%d,%d) в области другого замка", ErrPermissionDenied, x, y)
	}
	if meta.Kind == item.KindWorldLock && w.Owner != 0 {
		return nil, fmt.Errorf("%w: у мира уже есть владелец", ErrPermissionDenied)
	}
	return t, nil
}

// Place ставит предмет в клетку и возвращает пакет обновления.
// Замок области ставится без заливки: ее выполняет пакет lock.
func (w *World) Place(a Actor, x, y int, id uint16) ([]byte, error) {
	meta, err := w.Lookup(id)
	if err != nil {
		return nil, err
	}
	t, err := w.CheckPlace(a, x, y, meta)
	if err != nil {
		return nil, err
	}

	if meta.Kind == item.KindBackground {
		t.SetBackground(id)
	} else {
		t.SetForeground(id, meta.Kind, w.now())
		w.onPlaced(a, t, meta)
	}
	delete(w.damage, w.Index(x, y))
	w.dirty = true
	return w.TileUpdate(x, y), nil
}

func (w *World) onPlaced(a Actor, t *tile.Tile, meta item.Metadata) {
	switch meta.Kind {
	case item.KindLock, item.KindWorldLock:
		l, _ := t.LockData()
		l.Owner = a.UserID()
		if meta.Kind == item.KindWorldLock {
			w.Owner = a.UserID()
			w.MainLock = w.Index(t.X, t.Y)
		}
	case item.KindWeatherMachine, item.KindWeatherColor, item.KindWeatherBackground:
		if meta.Weather != 0 {
			w.Weather = meta.Weather
		}
	}
}

// Punch наносит удар по клетке. Когда число ударов достигает прочности
// предмета, верхний слой ломается. broken сообщает о поломке.
func (w *World) Punch(a Actor, x, y int) (payload []byte, broken bool, err error) {
	t, ok := w.Get(x, y)
	if !ok {
		return nil, false, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	target := t.Foreground
	if target == 0 {
		target = t.Background
	}
	if target == 0 {
		return nil, false, nil
	}

	meta, err := w.Lookup(target)
	if err != nil {
		return nil, false, err
	}
	if meta.Has(item.FlagPermanent) {
		return nil, false, fmt.Errorf("%w: %s нельзя сломать", ErrPermissionDenied, meta.Name)
	}
	if !a.HasEditAccess(w, x, y, 0) {
		return nil, false, fmt.Errorf("%w: (%d,%d)", ErrPermissionDenied, x, y)
	}

	index := w.Index(x, y)
	w.damage[index]++
	if w.damage[index] < meta.BreakHits {
		return nil, false, nil
	}
	delete(w.damage, index)

	w.breakTop(t)
	return w.TileUpdate(x, y), true, nil
}

// Break ломает верхний слой клетки без проверки прав и прочности
func (w *World) Break(x, y int) ([]byte, error) {
	t, ok := w.Get(x, y)
	if !ok {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	w.breakTop(t)
	delete(w.damage, w.Index(x, y))
	return w.TileUpdate(x, y), nil
}

// breakTop убирает передний план, а если его нет - задний.
// Возвращает клетки, освобожденные сломанным замком.
func (w *World) breakTop(t *tile.Tile) (released []int) {
	if t.Foreground == 0 {
		t.SetBackground(0)
		w.dirty = true
		return nil
	}

	index := w.Index(t.X, t.Y)
	switch w.KindOf(t.Foreground) {
	case item.KindLock:
		released = w.Release(index)
	case item.KindWorldLock:
		if w.MainLock == index {
			w.Owner = 0
			w.MainLock = NoMainLock
		}
	case item.KindWeatherMachine, item.KindWeatherColor, item.KindWeatherBackground, item.KindWeatherInfinity:
		w.Weather = w.BaseWeather
	}
	t.RemoveForeground()
	w.dirty = true
	return released
}

// EditAction - действие массового редактирования
type EditAction uint8

const (
	EditAdd           EditAction = iota + 1 // Поставить предмет в каждую клетку
	EditErase                               // Убрать слой с совпадающим id
	EditDrop                                // Выбросить по предмету в каждую клетку
	EditRemoveObjects                       // Убрать выпавшие предметы с этим id
)

// EditRegion применяет действие ко всем клеткам в круге радиуса radius
// с центром (cx, cy). Без bypass клетки без доступа пропускаются.
// Возвращает пакеты для рассылки и количество изменений.
func (w *World) EditRegion(a Actor, action EditAction, cx, cy int, radius float64, content uint16, bypass bool) ([][]byte, int, error) {
	if !w.InBounds(cx, cy) {
		return nil, 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, cx, cy)
	}
	meta, err := w.Lookup(content)
	if err != nil {
		return nil, 0, err
	}
	if action == EditAdd && meta.Kind.IsLock() {
		return nil, 0, fmt.Errorf("%w: замки нельзя ставить массово", ErrPermissionDenied)
	}
	if action < EditAdd || action > EditRemoveObjects {
		return nil, 0, fmt.Errorf("неизвестное действие %d", action)
	}

	r := int(math.Ceil(radius))
	var (
		changed []int
		added   []Object
		removed []uint32
	)
	seen := make(map[int]bool)
	mark := func(indices ...int) {
		for _, i := range indices {
			if !seen[i] {
				seen[i] = true
				changed = append(changed, i)
			}
		}
	}
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			t, ok := w.Get(x, y)
			if !ok || math.Hypot(float64(x-cx), float64(y-cy)) > radius {
				continue
			}
			if !bypass && !a.HasEditAccess(w, x, y, content) {
				continue
			}

			switch action {
			case EditAdd:
				if w.protected(t) && !bypass {
					continue
				}
				if meta.Kind == item.KindBackground {
					t.SetBackground(content)
				} else {
					if t.Foreground != 0 {
						mark(w.breakTop(t)...)
					}
					t.SetForeground(content, meta.Kind, w.now())
					w.onPlaced(a, t, meta)
				}
				mark(w.Index(x, y))
			case EditErase:
				if meta.Has(item.FlagPermanent) && !bypass {
					continue
				}
				switch {
				case t.Foreground == content:
					mark(w.breakTop(t)...)
				case t.Background == content:
					t.SetBackground(0)
				default:
					continue
				}
				mark(w.Index(x, y))
			case EditDrop:
				o := w.Drop(content, 1, float32(x)+0.5, float32(y)+0.5)
				added = append(added, *o)
			case EditRemoveObjects:
				removed = append(removed, w.RemoveObjects(content, x, y)...)
			}
		}
	}

	var out [][]byte
	if len(changed) > 0 {
		w.dirty = true
		out = append(out, w.TileBatch(changed))
	}
	if len(added) > 0 {
		out = append(out, ObjectsAdded(added...))
	}
	if len(removed) > 0 {
		out = append(out, ObjectsRemoved(removed...))
	}
	return out, len(changed) + len(added) + len(removed), nil
}

// protected - клетку с несокрушимым предметом или замком не перезаписать
func (w *World) protected(t *tile.Tile) bool {
	if t.Foreground == 0 {
		return false
	}
	m, ok := w.items.Lookup(t.Foreground)
	if !ok {
		return false
	}
	return m.Has(item.FlagPermanent) || m.Kind.IsLock()
}
