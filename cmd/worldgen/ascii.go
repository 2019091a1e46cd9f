package main

import (
	"strings"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/world"
)

// Символы для предметов переднего плана
var symbols = map[uint16]rune{
	item.Dirt:     '#',
	item.Rock:     '^',
	item.Lava:     '~',
	item.Bedrock:  '=',
	item.MainDoor: 'D',
}

// ascii рисует мир построчно: передний план, затем фон, затем воздух
func ascii(w *world.World) string {
	var b strings.Builder
	b.Grow((w.Width + 1) * w.Height)
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			t, _ := w.Get(x, y)
			switch ch, ok := symbols[t.Foreground]; {
			case ok:
				b.WriteRune(ch)
			case t.Foreground != 0:
				b.WriteRune('?')
			case t.Background != 0:
				b.WriteRune('.')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
