package world

import (
	"math"
	"sort"

	"github.com/annelo/go-tile-server/internal/packet"
)

// Object - выпавший предмет, лежащий в мире
type Object struct {
	ID    uint32
	Item  uint16
	X, Y  float32
	Count uint16
	Flags uint8
}

// Cell возвращает клетку, в которой лежит предмет
func (o *Object) Cell() (x, y int) {
	return int(math.Floor(float64(o.X))), int(math.Floor(float64(o.Y)))
}

// Операции в пакете ObjectUpdate
const (
	ObjectAdded   uint8 = 1
	ObjectRemoved uint8 = 2
)

// Drop кладет предмет в мир и возвращает его. Id выдаются по возрастанию.
func (w *World) Drop(itemID, count uint16, x, y float32) *Object {
	o := &Object{
		ID:    w.nextObjectID,
		Item:  itemID,
		X:     x,
		Y:     y,
		Count: count,
	}
	w.nextObjectID++
	w.objects[o.ID] = o
	w.dirty = true
	return o
}

// Pickup забирает предмет из мира
func (w *World) Pickup(id uint32) (Object, bool) {
	o, ok := w.objects[id]
	if !ok {
		return Object{}, false
	}
	delete(w.objects, id)
	w.dirty = true
	return *o, true
}

// RemoveObjects убирает все предметы itemID из клетки (x, y). Возвращает id убранных.
func (w *World) RemoveObjects(itemID uint16, x, y int) []uint32 {
	var removed []uint32
	for id, o := range w.objects {
		if o.Item != itemID {
			continue
		}
		if ox, oy := o.Cell(); ox == x && oy == y {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		delete(w.objects, id)
	}
	if len(removed) > 0 {
		w.dirty = true
	}
	return removed
}

// Object возвращает предмет по id
func (w *World) Object(id uint32) (Object, bool) {
	o, ok := w.objects[id]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Objects возвращает все предметы, отсортированные по id
func (w *World) Objects() []Object {
	out := make([]Object, 0, len(w.objects))
	for _, o := range w.objects {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextObjectID возвращает id, который получит следующий выпавший предмет
func (w *World) NextObjectID() uint32 {
	return w.nextObjectID
}

func putObject(pw *packet.Writer, o *Object) {
	pw.U16(o.Item)
	pw.F32(o.X)
	pw.F32(o.Y)
	pw.U16(o.Count)
	pw.U8(o.Flags)
	pw.U32(o.ID)
}

func getObject(r *packet.Reader) Object {
	return Object{
		Item:  r.U16(),
		X:     r.F32(),
		Y:     r.F32(),
		Count: r.U16(),
		Flags: r.U8(),
		ID:    r.U32(),
	}
}

// ObjectsAdded собирает пакет о появлении предметов
func ObjectsAdded(objs ...Object) []byte {
	pw := packet.New(packet.KindObjectUpdate, 3+len(objs)*17)
	pw.U8(ObjectAdded)
	pw.U16(uint16(len(objs)))
	for i := range objs {
		putObject(pw, &objs[i])
	}
	return pw.Bytes()
}

// ObjectsRemoved собирает пакет об исчезновении предметов
func ObjectsRemoved(ids ...uint32) []byte {
	pw := packet.New(packet.KindObjectUpdate, 3+len(ids)*4)
	pw.U8(ObjectRemoved)
	pw.U16(uint16(len(ids)))
	for _, id := range ids {
		pw.U32(id)
	}
	return pw.Bytes()
}
