package tile

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/annelo/go-tile-server/internal/packet"
)

var (
	// ErrUnknownTag - в блоке доп. данных неизвестный тег
	ErrUnknownTag = errors.New("неизвестный тег доп. данных")
	// ErrParentMismatch - повтор индекса родителя не совпал с полем parent
	ErrParentMismatch = errors.New("повтор индекса родителя не совпадает")
)

// Mode - вариант кодирования клетки
type Mode uint8

const (
	// ModeWire - для клиента: время передается как прошедшие секунды
	ModeWire Mode = iota
	// ModeStorage - для снимка: время хранится как unix-время
	ModeStorage
)

// Codec кодирует клетку в бинарное тело. Now используется только в ModeWire.
type Codec struct {
	Mode Mode
	Now  func() time.Time
}

// Wire возвращает кодек сетевого формата с текущим временем
func Wire() Codec {
	return Codec{Mode: ModeWire, Now: time.Now}
}

// Storage возвращает кодек формата хранения
func Storage() Codec {
	return Codec{Mode: ModeStorage, Now: time.Now}
}

func (c Codec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Encode дописывает тело клетки:
// fg u16, bg u16, parent u16, flags u16, [parent u16], [tag u8, len u16, данные]
func (c Codec) Encode(w *packet.Writer, t *Tile) {
	flags := t.Flags
	if t.Extra != nil {
		flags |= FlagExtraData
	} else {
		flags &^= FlagExtraData
	}

	w.U16(t.Foreground)
	w.U16(t.Background)
	w.U16(uint16(t.Parent))
	w.U16(uint16(flags))

	if flags&FlagLocked != 0 && t.Parent != 0 {
		w.U16(uint16(t.Parent))
	}

	if t.Extra == nil {
		return
	}
	w.U8(uint8(t.Extra.Tag()))
	off := w.Reserve16()
	c.encodeExtra(w, t.Extra)
	w.PatchLen16(off)
}

// Decode читает тело клетки в t. Позиция клетки и зеркало доступа не меняются
// кроме сброса Access: его восстанавливает владелец мира.
func (c Codec) Decode(r *packet.Reader, t *Tile) error {
	t.Foreground = r.U16()
	t.Background = r.U16()
	t.Parent = int(r.U16())
	t.Flags = Flags(r.U16())
	t.Extra = nil
	t.Access = nil

	if t.Has(FlagLocked) && t.Parent != 0 {
		echo := int(r.U16())
		if r.Err() == nil && echo != t.Parent {
			return fmt.Errorf("клетка (%d,%d): %w (%d != %d)", t.X, t.Y, ErrParentMismatch, echo, t.Parent)
		}
	}

	if t.Has(FlagExtraData) {
		tag := Tag(r.U8())
		n := int(r.U16())
		body := r.Sub(n)
		if err := r.Err(); err != nil {
			return err
		}
		e, err := c.decodeExtra(tag, body)
		if err != nil {
			return fmt.Errorf("клетка (%d,%d): %w", t.X, t.Y, err)
		}
		t.Extra = e
	}
	return r.Err()
}

// EncodeBytes кодирует одну клетку в отдельный буфер
func (c Codec) EncodeBytes(t *Tile) []byte {
	w := packet.NewWriter(16)
	c.Encode(w, t)
	return w.Bytes()
}

// DecodeBytes разбирает одну клетку из буфера
func (c Codec) DecodeBytes(b []byte, t *Tile) error {
	return c.Decode(packet.NewReader(b), t)
}

func (c Codec) putTime(w *packet.Writer, at time.Time) {
	if c.Mode == ModeStorage {
		w.I64(at.Unix())
		return
	}
	elapsed := c.now().Sub(at) / time.Second
	switch {
	case elapsed < 0:
		elapsed = 0
	case elapsed > math.MaxUint32:
		elapsed = math.MaxUint32
	}
	w.U32(uint32(elapsed))
}

func (c Codec) getTime(r *packet.Reader) time.Time {
	if c.Mode == ModeStorage {
		return time.Unix(r.I64(), 0).UTC()
	}
	elapsed := time.Duration(r.U32()) * time.Second
	return time.Unix(c.now().Unix(), 0).UTC().Add(-elapsed)
}

func putClothing(w *packet.Writer, cl *[BodyParts]uint16) {
	for _, id := range cl {
		w.U16(id)
	}
}

func getClothing(r *packet.Reader, cl *[BodyParts]uint16) {
	for i := range cl {
		cl[i] = r.U16()
	}
}

func (c Codec) encodeExtra(w *packet.Writer, e Extra) {
	switch v := e.(type) {
	case *Door:
		w.Str(v.Label)
		w.Str(v.Destination)
		w.Str(v.ID)
	case *Sign:
		w.Str(v.Text)
	case *Lock:
		w.U8(uint8(v.Settings))
		w.I32(v.Owner)
		w.U16(uint16(len(v.Access)))
		for _, id := range v.Access {
			w.I32(id)
		}
		w.U32(v.Decay)
	case *Seed:
		c.putTime(w, v.PlantedAt)
		w.U8(v.Fruit)
		w.Bool(v.Spliced)
	case *Provider:
		c.putTime(w, v.CollectedAt)
	case *Mannequin:
		w.Str(v.Label)
		w.U32(v.Color)
		putClothing(w, &v.Clothing)
	case *Dice:
		w.U8(v.Face)
	case *GameResource:
		w.U8(v.Team)
	case *Spotlight:
		w.I32(v.Holder)
	case *DisplayBlock:
		w.U32(v.Item)
	case *CountryFlag:
		w.Str(v.Country)
	case *WeatherColor:
		w.U32(v.Color)
	case *WeatherBackground:
		w.U16(v.Background)
	case *Portrait:
		w.U8(v.Expression)
		w.Str(v.Label)
		w.U32(v.SkinColor)
		w.U32(v.EyeColor)
		putClothing(w, &v.Clothing)
	case *WeatherMachine:
		var bits uint8
		if v.Spin {
			bits |= 1
		}
		if v.Invert {
			bits |= 2
		}
		w.I32(v.Gravity)
		w.U8(bits)
		w.U16(v.Item)
	case *WeatherInfinity:
		w.U32(v.Cycle)
		w.U16(uint16(len(v.Weathers)))
		for _, id := range v.Weathers {
			w.U16(id)
		}
	}
}

func (c Codec) decodeExtra(tag Tag, r *packet.Reader) (Extra, error) {
	var e Extra
	switch tag {
	case TagDoor:
		e = &Door{Label: r.Str(), Destination: r.Str(), ID: r.Str()}
	case TagSign:
		e = &Sign{Text: r.Str()}
	case TagLock:
		l := &Lock{Settings: LockSettings(r.U8()), Owner: r.I32()}
		n := int(r.U16())
		for i := 0; i < n && r.Err() == nil; i++ {
			l.Access.Add(r.I32())
		}
		l.Decay = r.U32()
		e = l
	case TagSeed:
		e = &Seed{PlantedAt: c.getTime(r), Fruit: r.U8(), Spliced: r.Bool()}
	case TagProvider:
		e = &Provider{CollectedAt: c.getTime(r)}
	case TagMannequin:
		m := &Mannequin{Label: r.Str(), Color: r.U32()}
		getClothing(r, &m.Clothing)
		e = m
	case TagDice:
		e = &Dice{Face: r.U8()}
	case TagGameResource:
		e = &GameResource{Team: r.U8()}
	case TagSpotlight:
		e = &Spotlight{Holder: r.I32()}
	case TagDisplayBlock:
		e = &DisplayBlock{Item: r.U32()}
	case TagFlag:
		e = &CountryFlag{Country: r.Str()}
	case TagWeatherColor:
		e = &WeatherColor{Color: r.U32()}
	case TagWeatherBackground:
		e = &WeatherBackground{Background: r.U16()}
	case TagPortrait:
		p := &Portrait{Expression: r.U8(), Label: r.Str(), SkinColor: r.U32(), EyeColor: r.U32()}
		getClothing(r, &p.Clothing)
		e = p
	case TagWeatherMachine:
		m := &WeatherMachine{Gravity: r.I32()}
		bits := r.U8()
		m.Spin = bits&1 != 0
		m.Invert = bits&2 != 0
		m.Item = r.U16()
		e = m
	case TagWeatherInfinity:
		m := &WeatherInfinity{Cycle: r.U32()}
		n := int(r.U16())
		if n > 0 {
			m.Weathers = make([]uint16, 0, n)
		}
		for i := 0; i < n && r.Err() == nil; i++ {
			m.Weathers = append(m.Weathers, r.U16())
		}
		e = m
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("доп. данные %d: %w", tag, err)
	}
	return e, nil
}
