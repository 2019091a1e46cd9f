package lock

import (
	"fmt"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/world"
)

// Apply ставит замок id в клетку (x, y) и заливает его область.
// Если набрать область не удалось, мир не меняется.
func Apply(w *world.World, a world.Actor, x, y int, id uint16) (Claim, error) {
	meta, err := w.Lookup(id)
	if err != nil {
		return Claim{}, err
	}
	quota := Quota(meta.LockTier)
	if meta.Kind != item.KindLock || quota == 0 {
		return Claim{}, fmt.Errorf("%w: %s", ErrNotALock, meta.Name)
	}
	if _, err := w.CheckPlace(a, x, y, meta); err != nil {
		return Claim{}, err
	}
	lockIndex := w.Index(x, y)
	if lockIndex == 0 {
		return Claim{}, fmt.Errorf("%w: замок нельзя ставить в угол (0,0)", world.ErrPermissionDenied)
	}

	cells, err := ringFill(w, x, y, quota-1, false)
	if err != nil {
		return Claim{}, err
	}

	if _, err := w.Place(a, x, y, id); err != nil {
		return Claim{}, err
	}
	lt, _ := w.At(lockIndex)
	writeBack(w, lt, lockIndex, cells)

	return Claim{X: x, Y: y, Item: id, Actor: a.UserID(), Cells: cells}, nil
}

// ringFill набирает want клеток вокруг (x, y). Радиус кольца растет по одному;
// внутри кольца каждый раз берется ближайшая подходящая клетка, соседняя
// (по 4 направлениям) с замком или уже взятой клеткой. Порядок выбора:
// манхэттенское расстояние, затем евклидово, затем индекс.
func ringFill(w *world.World, x, y, want int, ignoreAir bool) ([]int, error) {
	lockIndex := w.Index(x, y)
	taken := map[int]bool{lockIndex: true}
	cells := make([]int, 0, want)

	for r := 1; len(cells) < want; r++ {
		picked := 0
		for len(cells) < want {
			best, ok := nearest(w, x, y, r, taken, lockIndex, ignoreAir)
			if !ok {
				break
			}
			taken[best] = true
			cells = append(cells, best)
			picked++
		}
		if picked == 0 && len(cells) < want {
			return nil, fmt.Errorf("%w: набрано %d из %d", ErrSearchExhausted, len(cells), want)
		}
	}
	return cells, nil
}

// nearest ищет лучшую кандидатуру в ромбе радиуса r
func nearest(w *world.World, x, y, r int, taken map[int]bool, lockIndex int, ignoreAir bool) (int, bool) {
	best, bestManhattan, bestEuclid := -1, 0, 0
	for dy := -r; dy <= r; dy++ {
		span := r - abs(dy)
		for dx := -span; dx <= span; dx++ {
			cx, cy := x+dx, y+dy
			t, ok := w.Get(cx, cy)
			if !ok {
				continue
			}
			index := w.Index(cx, cy)
			if taken[index] || !eligible(w, t, lockIndex, ignoreAir) || !touches(w, cx, cy, taken) {
				continue
			}

			manhattan := abs(dx) + abs(dy)
			euclid := dx*dx + dy*dy
			if best < 0 || manhattan < bestManhattan ||
				(manhattan == bestManhattan && (euclid < bestEuclid || (euclid == bestEuclid && index < best))) {
				best, bestManhattan, bestEuclid = index, manhattan, euclid
			}
		}
	}
	return best, best >= 0
}

// touches - у клетки есть 4-сосед из уже взятых
func touches(w *world.World, x, y int, taken map[int]bool) bool {
	for _, d := range orthogonal {
		nx, ny := x+d[0], y+d[1]
		if w.InBounds(nx, ny) && taken[w.Index(nx, ny)] {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
