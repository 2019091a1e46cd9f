// Package circuit моделирует импульс пара, идущий по сети труб от
// источника до конечного устройства.
package circuit

import (
	"errors"
	"fmt"
	"time"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

const (
	// MaxHops - предел переходов одного импульса
	MaxHops = 100
	// HopDelay - задержка анимации на каждый переход
	HopDelay = 230 * time.Millisecond
)

// ErrNotASource - в клетке нет источника импульса
var ErrNotASource = errors.New("клетка не является источником импульса")

// Direction - направление движения импульса (ось y направлена вниз)
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

var deltas = [4][2]int{Up: {0, -1}, Right: {1, 0}, Down: {0, 1}, Left: {-1, 0}}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Clockwise поворачивает на 90 градусов по часовой стрелке
func (d Direction) Clockwise() Direction { return (d + 1) % 4 }

// CounterClockwise поворачивает на 90 градусов против часовой стрелки
func (d Direction) CounterClockwise() Direction { return (d + 3) % 4 }

// Reverse возвращает противоположное направление
func (d Direction) Reverse() Direction { return (d + 2) % 4 }

func (d Direction) step(x, y int) (int, int) {
	return x + deltas[d][0], y + deltas[d][1]
}

func fromFacing(f item.Facing) (Direction, bool) {
	switch f {
	case item.FacingUp:
		return Up, true
	case item.FacingDown:
		return Down, true
	case item.FacingLeft:
		return Left, true
	case item.FacingRight:
		return Right, true
	}
	return 0, false
}

// Effect - код эффекта устройства для клиента
type Effect uint8

const (
	EffectNone Effect = iota
	EffectVent
	EffectDoor
	EffectLauncher
	EffectLamp
	EffectSpikes
)

func effectOf(k item.Kind) Effect {
	switch k {
	case item.KindVent:
		return EffectVent
	case item.KindCircuitDoor:
		return EffectDoor
	case item.KindLauncher:
		return EffectLauncher
	case item.KindLamp:
		return EffectLamp
	case item.KindSpikes:
		return EffectSpikes
	}
	return EffectNone
}

// Event - один переход импульса
type Event struct {
	X, Y   int
	Delay  time.Duration
	Effect Effect
}

// Pulse - результат симуляции
type Pulse struct {
	Events []Event
	// Toggled - индексы переключенных устройств
	Toggled []int
	Hops    int
	// Stalled - импульс вернулся в клетку поворота и повернул туда же,
	// то есть зациклился
	Stalled bool
}

// Payload собирает пакет импульса: count u16, затем x u16, y u16, delay u32 (мс), effect u8
func (p Pulse) Payload() []byte {
	pw := packet.New(packet.KindCircuitPulse, 2+len(p.Events)*9)
	pw.U16(uint16(len(p.Events)))
	for _, e := range p.Events {
		pw.U16(uint16(e.X))
		pw.U16(uint16(e.Y))
		pw.U32(uint32(e.Delay / time.Millisecond))
		pw.U8(uint8(e.Effect))
	}
	return pw.Bytes()
}

// DecodePulse разбирает пакет импульса
func DecodePulse(b []byte) ([]Event, error) {
	kind, r, err := packet.Open(b)
	if err != nil {
		return nil, err
	}
	if kind != packet.KindCircuitPulse {
		return nil, fmt.Errorf("ожидался пакет %s, получен %s", packet.KindCircuitPulse, kind)
	}
	n := int(r.U16())
	events := make([]Event, 0, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		events = append(events, Event{
			X:      int(r.U16()),
			Y:      int(r.U16()),
			Delay:  time.Duration(r.U32()) * time.Millisecond,
			Effect: Effect(r.U8()),
		})
	}
	return events, r.Err()
}

// Rand - источник случайности для перемешивателя
type Rand interface {
	Intn(n int) int
}

// Fire запускает импульс из источника в клетке (x, y). Источник бьет вправо,
// отраженный - влево.
func Fire(w *world.World, x, y int, rnd Rand) (Pulse, error) {
	src, ok := w.Get(x, y)
	if !ok {
		return Pulse{}, fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
	}
	if w.KindOf(src.Foreground) != item.KindVent {
		return Pulse{}, fmt.Errorf("%w: (%d,%d)", ErrNotASource, x, y)
	}

	dir := Right
	if src.Has(tile.FlagFlipped) {
		dir = Left
	}

	var (
		p     Pulse
		delay time.Duration
		// turns - клетки поворотов и направление выхода из них
		turns = make(map[int]Direction)
	)
	for p.Hops < MaxHops {
		nx, ny := dir.step(x, y)
		t, ok := w.Get(nx, ny)
		if !ok {
			break
		}
		x, y = nx, ny
		p.Hops++
		delay += HopDelay
		index := w.Index(x, y)

		meta, known := w.Items().Lookup(t.Foreground)
		kind := meta.Kind
		if !known || t.Foreground == 0 {
			kind = item.KindNone
		}

		if !kind.IsNetwork() {
			ev := Event{X: x, Y: y, Delay: delay}
			if kind.IsActuator() {
				toggle(t, index, &p)
				ev.Effect = effectOf(kind)
			}
			p.Events = append(p.Events, ev)
			break
		}
		p.Events = append(p.Events, Event{X: x, Y: y, Delay: delay})

		next, alive := route(w, t, kind, meta, dir, x, y, rnd)
		if !alive {
			break
		}
		if next != dir {
			// Застревание: импульс снова поворачивает в той же клетке в ту же
			// сторону. Сверяется любой прежний поворот, а не только последний,
			// иначе цикл из нескольких перекрестков не будет замечен.
			if prev, seen := turns[index]; seen && prev == next {
				p.Stalled = true
				probe(w, x, y, delay, &p)
				break
			}
			turns[index] = next
			dir = next
		}
	}

	if len(p.Toggled) > 0 {
		w.MarkDirty()
	}
	return p, nil
}

// route вычисляет направление выхода из сетевой клетки. false - импульс рассеялся.
func route(w *world.World, t *tile.Tile, kind item.Kind, meta item.Metadata, dir Direction, x, y int, rnd Rand) (Direction, bool) {
	switch kind {
	case item.KindFunnel:
		if d, ok := fromFacing(meta.Facing); ok {
			return d, true
		}
		return dir, true
	case item.KindSideFunnel:
		if t.Has(tile.FlagFlipped) {
			return Left, true
		}
		return Right, true
	case item.KindCrossover:
		if t.Has(tile.FlagFlipped) {
			return dir.Clockwise(), true
		}
		return dir.CounterClockwise(), true
	case item.KindScrambler:
		var options [3]Direction
		n := 0
		for d := Up; d <= Left; d++ {
			if d == dir.Reverse() {
				continue
			}
			nx, ny := d.step(x, y)
			if nt, ok := w.Get(nx, ny); ok && w.KindOf(nt.Foreground).IsNetwork() {
				options[n] = d
				n++
			}
		}
		switch n {
		case 0:
			return dir, false
		case 1:
			return options[0], true
		}
		return options[rnd.Intn(n)], true
	}
	return dir, true
}

// probe переключает устройства вокруг клетки, где импульс застрял
func probe(w *world.World, x, y int, delay time.Duration, p *Pulse) {
	for d := Up; d <= Left; d++ {
		nx, ny := d.step(x, y)
		t, ok := w.Get(nx, ny)
		if !ok {
			continue
		}
		kind := w.KindOf(t.Foreground)
		if !kind.IsActuator() {
			continue
		}
		toggle(t, w.Index(nx, ny), p)
		p.Events = append(p.Events, Event{X: nx, Y: ny, Delay: delay, Effect: effectOf(kind)})
	}
}

func toggle(t *tile.Tile, index int, p *Pulse) {
	t.Toggle(tile.FlagOpen)
	p.Toggled = append(p.Toggled, index)
}
