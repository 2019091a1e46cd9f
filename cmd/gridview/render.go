package main

import (
	"fmt"

	termbox "github.com/nsf/termbox-go"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

// Возвращает символ и цвета для клетки
func tileSymbol(w *world.World, t *tile.Tile) (rune, termbox.Attribute, termbox.Attribute) {
	bg := termbox.ColorBlack
	if t.Has(tile.FlagLocked) {
		bg = termbox.ColorBlue
	}
	if t.Foreground == 0 {
		if t.Background != 0 {
			return '.', termbox.ColorYellow, bg
		}
		return ' ', termbox.ColorDefault, bg
	}

	switch w.KindOf(t.Foreground) {
	case item.KindBedrock:
		return '=', termbox.ColorWhite, bg
	case item.KindMainDoor, item.KindDoor, item.KindPortal:
		return 'D', termbox.ColorMagenta | termbox.AttrBold, bg
	case item.KindLock, item.KindWorldLock:
		return 'L', termbox.ColorYellow | termbox.AttrBold, bg
	case item.KindPipe, item.KindFunnel, item.KindSideFunnel, item.KindCrossover, item.KindScrambler:
		return '+', termbox.ColorCyan, bg
	case item.KindVent, item.KindCircuitDoor, item.KindLauncher, item.KindLamp, item.KindSpikes:
		if t.Has(tile.FlagOpen) {
			return 'o', termbox.ColorGreen | termbox.AttrBold, bg
		}
		return 'o', termbox.ColorRed, bg
	case item.KindWeatherMachine, item.KindWeatherColor, item.KindWeatherBackground, item.KindWeatherInfinity:
		return '*', termbox.ColorWhite, termbox.ColorBlue
	case item.KindSeed:
		return '"', termbox.ColorGreen, bg
	}
	if m, ok := w.Items().Lookup(t.Foreground); ok && m.Collision == item.CollisionSolid {
		return '#', termbox.ColorWhite, bg
	}
	return '?', termbox.ColorYellow, bg
}

// describe - строка информации о клетке под курсором
func describe(w *world.World, x, y int) string {
	t, ok := w.Get(x, y)
	if !ok {
		return fmt.Sprintf("(%d,%d) вне мира", x, y)
	}
	name := func(id uint16) string {
		if id == 0 {
			return "-"
		}
		if m, ok := w.Items().Lookup(id); ok {
			return m.Name
		}
		return fmt.Sprintf("#%d", id)
	}
	s := fmt.Sprintf("(%d,%d) fg=%s bg=%s flags=%#x", x, y, name(t.Foreground), name(t.Background), uint16(t.Flags))
	if t.Has(tile.FlagLocked) {
		lx, ly := w.Coords(t.Parent)
		s += fmt.Sprintf(" замок=(%d,%d)", lx, ly)
	}
	if l, ok := w.RegionLock(t); ok {
		s += fmt.Sprintf(" владелец=%d доступ=%d", l.Owner, len(l.Access))
	}
	return s
}
