// Package generator создает новые миры: поверхность по шуму Перлина, пещерный
// фон, камень и лаву в глубине, слой бедрока снизу и главную дверь на
// поверхности.
package generator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

const (
	DefaultWidth  = 100
	DefaultHeight = 60
	// DoorLabel - подпись главной двери
	DoorLabel = "EXIT"
)

// Options - параметры генерации
type Options struct {
	Width  int
	Height int
	Seed   int64
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Layout - рассчитанная разметка слоев мира
type Layout struct {
	// Surface - первая строка земли для каждого столбца
	Surface []int
	// Bedrock - первая строка бедрока
	Bedrock int
	// DoorX - столбец главной двери
	DoorX int
}

// Generate создает мир по параметрам. Одинаковый seed дает одинаковый мир.
func Generate(name string, opts Options, items item.Catalog) (*world.World, error) {
	opts = opts.withDefaults()
	if opts.Height < 3 {
		return nil, fmt.Errorf("%w: высота %d меньше 3", world.ErrBadSize, opts.Height)
	}
	w, err := world.New(name, opts.Width, opts.Height, items)
	if err != nil {
		return nil, err
	}

	layout := plan(opts)
	caves := newNoiseMap(opts.Seed+1, 0.11)

	for x := 0; x < opts.Width; x++ {
		for y := layout.Surface[x]; y < opts.Height; y++ {
			t, _ := w.Get(x, y)
			t.SetBackground(item.CaveBackground)

			id := item.Dirt
			switch {
			case y >= layout.Bedrock:
				id = item.Bedrock
			case y-layout.Surface[x] >= 3 && caves.normalized2D(float64(x), float64(y), 3) > 0.68:
				id = item.Rock
			case y >= layout.Bedrock-4 && caves.normalized2D(float64(x), float64(y), 3) < 0.25:
				id = item.Lava
			}
			if err := put(w, t, id); err != nil {
				return nil, err
			}
		}
	}

	// Главная дверь стоит на бедроке, чтобы ее нельзя было подкопать
	doorX, surface := layout.DoorX, layout.Surface[layout.DoorX]
	floor, _ := w.Get(doorX, surface)
	if err := put(w, floor, item.Bedrock); err != nil {
		return nil, err
	}
	door, _ := w.Get(doorX, surface-1)
	if err := put(w, door, item.MainDoor); err != nil {
		return nil, err
	}
	if d, ok := door.Extra.(*tile.Door); ok {
		d.Label = DoorLabel
	}

	w.MarkDirty()
	return w, nil
}

// plan рассчитывает высоту поверхности и положение двери
func plan(opts Options) Layout {
	h := opts.Height
	bedrockRows := max(1, h/10)
	base := h * 2 / 5
	amplitude := max(1, h/20)

	// Минимум одна строка воздуха сверху и одна строка земли над бедроком
	lo, hi := 1, h-bedrockRows-1
	if hi < lo {
		hi = lo
	}

	relief := newNoiseMap(opts.Seed, 0.07)
	l := Layout{Surface: make([]int, opts.Width), Bedrock: h - bedrockRows}
	for x := range l.Surface {
		n := relief.normalized2D(float64(x), 0.5, 4)
		s := base + int(math.Round((n-0.5)*2*float64(amplitude)))
		l.Surface[x] = min(max(s, lo), hi)
	}

	rnd := rand.New(rand.NewSource(opts.Seed))
	if opts.Width > 2 {
		l.DoorX = 1 + rnd.Intn(opts.Width-2)
	}
	return l
}

func put(w *world.World, t *tile.Tile, id uint16) error {
	m, err := w.Lookup(id)
	if err != nil {
		return err
	}
	t.SetForeground(id, m.Kind, w.Now())
	return nil
}
