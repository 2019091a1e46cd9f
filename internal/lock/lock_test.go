package lock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

type testActor struct{ id int32 }

func (a testActor) UserID() int32 { return a.id }
func (a testActor) IsOwner(w *world.World) bool { return w.Owner == a.id }
func (a testActor) HasEditAccess(*world.World, int, int, uint16) bool { return true }
func (a testActor) CanNoClip() bool { return false }
func (a testActor) Send([]byte) {}

func newWorld(t *testing.T, width, height int) *world.World {
	t.Helper()
	w, err := world.New("LOCKS", width, height, item.Default())
	require.NoError(t, err)
	w.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	return w
}

func manhattan(w *world.World, from, to int) int {
	fx, fy := w.Coords(from)
	tx, ty := w.Coords(to)
	return abs(fx-tx) + abs(fy-ty)
}

func TestApply_SmallLockOpenField(t *testing.T) {
	w := newWorld(t, 100, 60)
	claim, err := Apply(w, testActor{id: 1}, 10, 10, item.SmallLock)
	require.NoError(t, err)

	lockIndex := w.Index(10, 10)
	require.Len(t, claim.Cells, Quota(item.TierSmall)-1)
	assert.NotContains(t, claim.Cells, lockIndex)

	// Кольца по возрастанию манхэттенского расстояния
	for i := 1; i < len(claim.Cells); i++ {
		assert.LessOrEqual(t, manhattan(w, lockIndex, claim.Cells[i-1]), manhattan(w, lockIndex, claim.Cells[i]))
	}
	for _, c := range claim.Cells[:4] {
		assert.Equal(t, 1, manhattan(w, lockIndex, c))
	}
	assert.Equal(t, w.Index(10, 8), claim.Cells[8], "после диагоналей - ближайшая по индексу клетка второго кольца")

	for _, c := range claim.Cells {
		tl, _ := w.At(c)
		assert.Equal(t, lockIndex, tl.Parent)
		assert.True(t, tl.Has(tile.FlagLocked))
	}

	lt, _ := w.At(lockIndex)
	assert.Zero(t, lt.Parent, "замок - корень своей области")
	l, ok := lt.LockData()
	require.True(t, ok)
	assert.Equal(t, int32(1), l.Owner)
}

func TestApply_ClaimPayload(t *testing.T) {
	w := newWorld(t, 100, 60)
	claim, err := Apply(w, testActor{id: 31}, 40, 20, item.BigLock)
	require.NoError(t, err)

	decoded, err := DecodeClaim(claim.Payload())
	require.NoError(t, err)
	assert.Equal(t, claim, decoded)
	assert.Len(t, decoded.Cells, 47)
}

func TestApply_TierQuotas(t *testing.T) {
	for _, id := range []uint16{item.SmallLock, item.BigLock, item.HugeLock} {
		w := newWorld(t, 100, 60)
		meta, _ := w.Lookup(id)
		claim, err := Apply(w, testActor{id: 1}, 50, 30, id)
		require.NoError(t, err)
		assert.Len(t, claim.Cells, Quota(meta.LockTier)-1)
	}
}

func TestApply_ExhaustedLeavesWorldUntouched(t *testing.T) {
	w := newWorld(t, 3, 3)
	_, err := Apply(w, testActor{id: 1}, 1, 1, item.SmallLock)
	assert.ErrorIs(t, err, ErrSearchExhausted)

	assert.False(t, w.Dirty())
	w.Each(func(_ int, tl *tile.Tile) {
		assert.True(t, tl.IsEmpty())
		assert.Zero(t, tl.Parent)
	})
}

func TestApply_Exclusions(t *testing.T) {
	w := newWorld(t, 20, 20)
	// Стена из коренной породы левее замка
	for y := 0; y < 20; y++ {
		tl, _ := w.Get(4, y)
		tl.SetForeground(item.Bedrock, item.KindBedrock, w.Now())
	}
	door, _ := w.Get(6, 5)
	door.SetForeground(item.MainDoor, item.KindMainDoor, w.Now())

	claim, err := Apply(w, testActor{id: 1}, 5, 5, item.SmallLock)
	require.NoError(t, err)
	for _, c := range claim.Cells {
		x, _ := w.Coords(c)
		assert.Greater(t, x, 4, "за стену заливка не проходит")
		assert.NotEqual(t, w.Index(6, 5), c, "главная дверь не захватывается")
	}
}

func TestApply_RespectsForeignRegion(t *testing.T) {
	w := newWorld(t, 30, 30)
	first, err := Apply(w, testActor{id: 1}, 10, 10, item.SmallLock)
	require.NoError(t, err)

	second, err := Apply(w, testActor{id: 2}, 12, 10, item.SmallLock)
	require.NoError(t, err)
	for _, c := range second.Cells {
		assert.NotContains(t, first.Cells, c)
	}
}

func TestApply_NotALock(t *testing.T) {
	w := newWorld(t, 10, 10)
	_, err := Apply(w, testActor{id: 1}, 5, 5, item.Dirt)
	assert.ErrorIs(t, err, ErrNotALock)
	_, err = Apply(w, testActor{id: 1}, 5, 5, 60000)
	assert.ErrorIs(t, err, world.ErrUnknownContent)
	_, err = Apply(w, testActor{id: 1}, 50, 5, item.SmallLock)
	assert.ErrorIs(t, err, world.ErrOutOfBounds)
}

func TestReapply_BreadthFirst(t *testing.T) {
	w := newWorld(t, 100, 60)
	_, err := Apply(w, testActor{id: 1}, 10, 10, item.SmallLock)
	require.NoError(t, err)
	lockIndex := w.Index(10, 10)

	claim, err := Reapply(w, lockIndex)
	require.NoError(t, err)
	require.Len(t, claim.Cells, 9)
	assert.NotContains(t, claim.Cells, lockIndex)
	assert.Equal(t, []int{w.Index(9, 10), w.Index(11, 10), w.Index(10, 9), w.Index(10, 11)}, claim.Cells[:4])

	claimed := 0
	w.Each(func(_ int, tl *tile.Tile) {
		if tl.Parent == lockIndex {
			claimed++
		}
	})
	assert.Equal(t, 9, claimed, "старая область снята перед заливкой")
}

func TestReapply_LargeTierUsesDiagonals(t *testing.T) {
	w := newWorld(t, 100, 60)
	_, err := Apply(w, testActor{id: 1}, 50, 30, item.HugeLock)
	require.NoError(t, err)

	claim, err := Reapply(w, w.Index(50, 30))
	require.NoError(t, err)
	assert.Len(t, claim.Cells, 199)
	assert.Contains(t, claim.Cells[:8], w.Index(49, 29))
}

func TestConfigure_IgnoreAir(t *testing.T) {
	w := newWorld(t, 20, 20)
	_, err := Apply(w, testActor{id: 1}, 5, 5, item.SmallLock)
	require.NoError(t, err)
	for _, x := range []int{6, 7} {
		tl, _ := w.Get(x, 5)
		tl.SetForeground(item.Dirt, item.KindBlock, w.Now())
	}

	claim, err := Configure(w, w.Index(5, 5), tile.LockIgnoreAir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{w.Index(6, 5), w.Index(7, 5)}, claim.Cells)

	empty, _ := w.Get(4, 5)
	assert.Zero(t, empty.Parent)
}

func TestAccess_IdempotentAndMirrored(t *testing.T) {
	w := newWorld(t, 30, 30)
	claim, err := Apply(w, testActor{id: 1}, 10, 10, item.SmallLock)
	require.NoError(t, err)
	lockIndex := w.Index(10, 10)

	added, err := AddAccess(w, lockIndex, 7)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = AddAccess(w, lockIndex, 7)
	require.NoError(t, err)
	assert.False(t, added)

	_, l, _ := w.LockAt(lockIndex)
	assert.Equal(t, tile.AccessList{7}, l.Access)
	for _, c := range claim.Cells {
		tl, _ := w.At(c)
		assert.Equal(t, tile.AccessList{7}, tl.Access)
	}

	removed, err := RemoveAccess(w, lockIndex, 8)
	require.NoError(t, err)
	assert.False(t, removed, "удаление не-члена - no-op")

	removed, err = RemoveAccess(w, lockIndex, 7)
	require.NoError(t, err)
	assert.True(t, removed)
	tl, _ := w.At(claim.Cells[0])
	assert.Nil(t, tl.Access)

	_, err = AddAccess(w, w.Index(1, 1), 7)
	assert.ErrorIs(t, err, ErrNotALock)
}

func TestApply_MirrorOwner(t *testing.T) {
	w := newWorld(t, 30, 30)
	w.Owner = 99

	claim, err := Apply(w, testActor{id: 5}, 10, 10, item.BuildersLock)
	require.NoError(t, err)
	tl, _ := w.At(claim.Cells[0])
	assert.True(t, tl.Access.Contains(99))
}

func TestApply_InsideExistingRegionDenied(t *testing.T) {
	w := newWorld(t, 30, 30)
	a := testActor{id: 1}
	first, err := Apply(w, a, 10, 10, item.SmallLock)
	require.NoError(t, err)
	lockIndex := w.Index(10, 10)

	// Даже владелец не ставит второй замок в свою же область
	inner := first.Cells[len(first.Cells)-1]
	x, y := w.Coords(inner)
	_, err = Apply(w, a, x, y, item.SmallLock)
	assert.ErrorIs(t, err, world.ErrPermissionDenied)

	_, err = w.Place(a, x, y, item.WorldLock)
	assert.ErrorIs(t, err, world.ErrPermissionDenied)

	tl, _ := w.At(inner)
	assert.Zero(t, tl.Foreground)
	assert.Equal(t, lockIndex, tl.Parent)
	assert.Equal(t, int32(0), w.Owner)

	// Переоценка внешнего замка возвращает ту же область
	again, err := Reapply(w, lockIndex)
	require.NoError(t, err)
	assert.Contains(t, again.Cells, inner)
}
