// Package tile описывает клетку мира: содержимое переднего и заднего плана,
// принадлежность замку, флаги и типизированные дополнительные данные.
package tile

import (
	"time"

	"github.com/annelo/go-tile-server/internal/item"
)

// Flags - битовое поле состояния клетки (передается клиенту как есть)
type Flags uint16

const (
	FlagExtraData Flags = 1 << iota // За телом клетки следует блок доп. данных
	FlagLocked                      // Клетка принадлежит области замка
	FlagPublic                      // Общедоступная клетка
	FlagWater
	FlagFire
	FlagFlipped  // Отражено по горизонтали (ориентация устройства)
	FlagOpen     // Устройство открыто/включено импульсом
	FlagSilenced // Звук устройства отключен
)

// preservedOnBreak - флаги, переживающие поломку содержимого
const preservedOnBreak = FlagLocked | FlagWater | FlagFire

// Tile - одна клетка мира. Индекс клетки не хранится: он вычисляется из X, Y.
type Tile struct {
	X, Y       int
	Foreground uint16
	Background uint16
	// Parent - 0, если клетка ничья, иначе линейный индекс клетки замка
	Parent int
	Flags  Flags
	// Extra - доп. данные, тип определяется содержимым переднего плана
	Extra Extra
	// Access - зеркало списка доступа замка-владельца; не сериализуется
	Access AccessList
}

// Has проверяет наличие флага
func (t *Tile) Has(f Flags) bool {
	return t.Flags&f != 0
}

// Set устанавливает флаг
func (t *Tile) Set(f Flags) {
	t.Flags |= f
}

// Clear снимает флаг
func (t *Tile) Clear(f Flags) {
	t.Flags &^= f
}

// Toggle переключает флаг и возвращает новое состояние
func (t *Tile) Toggle(f Flags) bool {
	t.Flags ^= f
	return t.Flags&f != 0
}

// IsEmpty - в клетке нет ни переднего, ни заднего плана
func (t *Tile) IsEmpty() bool {
	return t.Foreground == 0 && t.Background == 0
}

// SetForeground меняет содержимое переднего плана. Тег доп. данных
// выставляется здесь и только здесь, по типу нового содержимого.
func (t *Tile) SetForeground(id uint16, kind item.Kind, now time.Time) {
	t.Foreground = id
	t.Extra = NewExtra(kind, now)
	if t.Extra != nil {
		t.Set(FlagExtraData)
	} else {
		t.Clear(FlagExtraData)
	}
}

// RemoveForeground убирает передний план вместе с доп. данными.
// Сохраняются только флаги блокировки, воды и огня.
func (t *Tile) RemoveForeground() {
	t.Foreground = 0
	t.Extra = nil
	t.Flags &= preservedOnBreak
}

// SetBackground меняет задний план
func (t *Tile) SetBackground(id uint16) {
	t.Background = id
}

// Unclaim отвязывает клетку от области замка
func (t *Tile) Unclaim() {
	t.Parent = 0
	t.Clear(FlagLocked)
	t.Access = nil
}

// Claim привязывает клетку к замку с индексом lockIndex
func (t *Tile) Claim(lockIndex int, access AccessList) {
	t.Parent = lockIndex
	t.Set(FlagLocked)
	t.Access = access.Clone()
}

// LockData возвращает доп. данные замка, если клетка - замок
func (t *Tile) LockData() (*Lock, bool) {
	l, ok := t.Extra.(*Lock)
	return l, ok
}
