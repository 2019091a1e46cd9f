package lock

import (
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

// diagonalAfter - после стольких взятых клеток обход добавляет диагонали
const diagonalAfter = 6

// Reapply заново вычисляет область замка в клетке lockIndex: снимает старую
// привязку и заливает область обходом в ширину от замка.
func Reapply(w *world.World, lockIndex int) (Claim, error) {
	lt, l, meta, err := lockTile(w, lockIndex)
	if err != nil {
		return Claim{}, err
	}
	want := Quota(meta.LockTier) - 1
	ignoreAir := l.Settings&tile.LockIgnoreAir != 0

	w.Release(lockIndex)

	cells := make([]int, 0, want)
	seen := map[int]bool{lockIndex: true}
	queue := []int{lockIndex}

	for len(queue) > 0 && len(cells) < want {
		cur := queue[0]
		queue = queue[1:]
		cx, cy := w.Coords(cur)

		dirs := orthogonal[:]
		if meta.LockTier == item.TierLarge || len(cells) > diagonalAfter {
			dirs = append(append([][2]int{}, orthogonal[:]...), diagonal[:]...)
		}

		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			t, ok := w.Get(nx, ny)
			if !ok {
				continue
			}
			index := w.Index(nx, ny)
			if seen[index] || !eligible(w, t, lockIndex, ignoreAir) {
				continue
			}
			seen[index] = true
			cells = append(cells, index)
			queue = append(queue, index)
			if len(cells) == want {
				break
			}
		}
	}

	writeBack(w, lt, lockIndex, cells)
	x, y := w.Coords(lockIndex)
	return Claim{X: x, Y: y, Item: lt.Foreground, Actor: l.Owner, Cells: cells}, nil
}

// Configure меняет настройки замка и пересчитывает область
func Configure(w *world.World, lockIndex int, settings tile.LockSettings) (Claim, error) {
	_, l, _, err := lockTile(w, lockIndex)
	if err != nil {
		return Claim{}, err
	}
	l.Settings = settings
	return Reapply(w, lockIndex)
}

// AddAccess дает игроку доступ к области замка. Повторное добавление - no-op.
// Работает и для мирового замка.
func AddAccess(w *world.World, lockIndex int, userID int32) (bool, error) {
	lt, l, ok := w.LockAt(lockIndex)
	if !ok {
		return false, ErrNotALock
	}
	if !l.Access.Add(userID) {
		return false, nil
	}
	mirror(w, lt, lockIndex)
	return true, nil
}

// RemoveAccess забирает доступ. Для не-члена списка - no-op.
func RemoveAccess(w *world.World, lockIndex int, userID int32) (bool, error) {
	lt, l, ok := w.LockAt(lockIndex)
	if !ok {
		return false, ErrNotALock
	}
	if !l.Access.Remove(userID) {
		return false, nil
	}
	mirror(w, lt, lockIndex)
	return true, nil
}

// mirror переносит текущий список доступа на клетки области
func mirror(w *world.World, lt *tile.Tile, lockIndex int) {
	access, _ := w.MirrorAccess(lt)
	w.Each(func(i int, t *tile.Tile) {
		if i != lockIndex && t.Parent == lockIndex && t.Has(tile.FlagLocked) {
			t.Access = access.Clone()
		}
	})
	w.MarkDirty()
}
