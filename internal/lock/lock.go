// Package lock распределяет клетки мира между замками: первичная заливка при
// установке замка (кольцами по манхэттенскому расстоянию) и переоценка
// области обходом в ширину.
package lock

import (
	"errors"
	"fmt"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

var (
	// ErrSearchExhausted - не удалось набрать нужное число клеток
	ErrSearchExhausted = errors.New("не хватает свободных клеток для замка")
	// ErrNotALock - предмет или клетка не являются замком области
	ErrNotALock = errors.New("не замок")
)

// Quota возвращает размер области замка, включая клетку самого замка
func Quota(tier uint8) int {
	switch tier {
	case item.TierSmall:
		return 10
	case item.TierMedium:
		return 48
	case item.TierLarge:
		return 200
	}
	return 0
}

// Claim - результат заливки: клетки, отданные замку
type Claim struct {
	X, Y  int
	Item  uint16
	Actor int32
	// Cells - линейные индексы клеток области без клетки замка
	Cells []int
}

// Payload собирает пакет захвата области
func (c Claim) Payload() []byte {
	pw := packet.New(packet.KindLockClaim, 12+len(c.Cells)*2)
	pw.U16(uint16(c.X))
	pw.U16(uint16(c.Y))
	pw.U16(c.Item)
	pw.I32(c.Actor)
	pw.U16(uint16(len(c.Cells)))
	for _, i := range c.Cells {
		pw.U16(uint16(i))
	}
	return pw.Bytes()
}

// DecodeClaim разбирает пакет захвата области
func DecodeClaim(b []byte) (Claim, error) {
	kind, r, err := packet.Open(b)
	if err != nil {
		return Claim{}, err
	}
	if kind != packet.KindLockClaim {
		return Claim{}, fmt.Errorf("ожидался пакет %s, получен %s", packet.KindLockClaim, kind)
	}
	c := Claim{
		X:     int(r.U16()),
		Y:     int(r.U16()),
		Item:  r.U16(),
		Actor: r.I32(),
	}
	n := int(r.U16())
	for i := 0; i < n && r.Err() == nil; i++ {
		c.Cells = append(c.Cells, int(r.U16()))
	}
	return c, r.Err()
}

// eligible сообщает, может ли клетка войти в область замка lockIndex
func eligible(w *world.World, t *tile.Tile, lockIndex int, ignoreAir bool) bool {
	if t.Parent != 0 && t.Parent != lockIndex {
		return false
	}
	switch k := w.KindOf(t.Foreground); {
	case k == item.KindMainDoor, k == item.KindBedrock, k.IsLock():
		return false
	}
	if ignoreAir && t.IsEmpty() {
		return false
	}
	return true
}

var (
	orthogonal = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonal   = [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
)

// lockTile проверяет, что по индексу стоит замок области, и возвращает его уровень
func lockTile(w *world.World, lockIndex int) (*tile.Tile, *tile.Lock, item.Metadata, error) {
	t, l, ok := w.LockAt(lockIndex)
	if !ok || lockIndex == 0 {
		return nil, nil, item.Metadata{}, fmt.Errorf("%w: клетка %d", ErrNotALock, lockIndex)
	}
	meta, err := w.Lookup(t.Foreground)
	if err != nil {
		return nil, nil, item.Metadata{}, err
	}
	if meta.Kind != item.KindLock || Quota(meta.LockTier) == 0 {
		return nil, nil, item.Metadata{}, fmt.Errorf("%w: %s", ErrNotALock, meta.Name)
	}
	return t, l, meta, nil
}

// writeBack привязывает клетки к замку и переносит на них список доступа
func writeBack(w *world.World, lt *tile.Tile, lockIndex int, cells []int) {
	access, _ := w.MirrorAccess(lt)
	for _, i := range cells {
		t, _ := w.At(i)
		t.Claim(lockIndex, access)
	}
	w.MarkDirty()
}
