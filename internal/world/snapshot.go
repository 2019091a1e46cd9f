package world

import (
	"errors"
	"fmt"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
)

// SnapshotVersion - текущая версия формата снимка
const SnapshotVersion uint16 = 1

// ErrBadSnapshot - снимок поврежден или несовместим
var ErrBadSnapshot = errors.New("поврежденный снимок мира")

// Snapshot кодирует мир для сохранения:
// версия, флаги, имя, ширина, высота, клетки, предметы, погода
func (w *World) Snapshot() []byte {
	pw := packet.NewWriter(64 + len(w.tiles)*10)
	w.encode(pw, tile.Codec{Mode: tile.ModeStorage, Now: w.now})
	return pw.Bytes()
}

// WorldPayload собирает пакет полного мира для входящего игрока
func (w *World) WorldPayload() []byte {
	pw := packet.New(packet.KindWorldSnapshot, 64+len(w.tiles)*10)
	w.encode(pw, w.wireCodec())
	return pw.Bytes()
}

func (w *World) encode(pw *packet.Writer, codec tile.Codec) {
	pw.U16(SnapshotVersion)
	pw.U16(uint16(w.Flags))
	pw.Str(w.Name)
	pw.U16(uint16(w.Width))
	pw.U16(uint16(w.Height))

	pw.U32(uint32(len(w.tiles)))
	for i := range w.tiles {
		codec.Encode(pw, &w.tiles[i])
	}

	objs := w.Objects()
	pw.U32(uint32(len(objs)))
	pw.U32(w.nextObjectID)
	for i := range objs {
		putObject(pw, &objs[i])
	}

	pw.U16(w.Weather)
	pw.U16(w.BaseWeather)
}

// Restore восстанавливает мир из снимка, записанного Snapshot.
// Владелец мира и зеркала списков доступа вычисляются заново по клеткам замков.
func Restore(raw []byte, items item.Catalog) (*World, error) {
	r := packet.NewReader(raw)
	codec := tile.Codec{Mode: tile.ModeStorage}

	version := r.U16()
	if r.Err() == nil && version != SnapshotVersion {
		return nil, fmt.Errorf("%w: версия %d", ErrBadSnapshot, version)
	}
	flags := Flags(r.U16())
	name := r.Str()
	width := int(r.U16())
	height := int(r.U16())
	count := int(r.U32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: заголовок: %v", ErrBadSnapshot, err)
	}

	w, err := New(name, width, height, items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if count != len(w.tiles) {
		return nil, fmt.Errorf("%w: %d клеток при размере %dx%d", ErrBadSnapshot, count, width, height)
	}
	w.Flags = flags

	for i := range w.tiles {
		if err := codec.Decode(r, &w.tiles[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
		}
	}

	objCount := int(r.U32())
	w.nextObjectID = r.U32()
	for i := 0; i < objCount && r.Err() == nil; i++ {
		o := getObject(r)
		w.objects[o.ID] = &o
	}
	w.Weather = r.U16()
	w.BaseWeather = r.U16()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	w.restoreOwnership()
	return w, nil
}

// restoreOwnership находит мировой замок и переносит списки доступа
// замков на клетки их областей
func (w *World) restoreOwnership() {
	for i := range w.tiles {
		t := &w.tiles[i]
		l, ok := t.LockData()
		if !ok {
			continue
		}
		if w.KindOf(t.Foreground) == item.KindWorldLock {
			w.Owner = l.Owner
			w.MainLock = i
		}
	}

	for i := range w.tiles {
		t := &w.tiles[i]
		if t.Parent == 0 || !t.Has(tile.FlagLocked) {
			continue
		}
		if lt, ok := w.At(t.Parent); ok {
			if access, ok := w.MirrorAccess(lt); ok {
				t.Access = access
			}
		}
	}
}
