package pathfind

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

type walker struct {
	id     int32
	noclip bool
}

func (a walker) UserID() int32 { return a.id }
func (a walker) IsOwner(w *world.World) bool { return w.Owner != 0 && w.Owner == a.id }
func (a walker) HasEditAccess(*world.World, int, int, uint16) bool { return true }
func (a walker) CanNoClip() bool { return a.noclip }
func (a walker) Send([]byte) {}

var epoch = time.Unix(1_700_000_000, 0)

func newWorld(t *testing.T, width, height int) *world.World {
	t.Helper()
	w, err := world.New("PATH", width, height, item.Default())
	require.NoError(t, err)
	return w
}

func put(w *world.World, x, y int, id uint16) *tile.Tile {
	tl, _ := w.Get(x, y)
	m, _ := w.Items().Lookup(id)
	tl.SetForeground(id, m.Kind, epoch)
	return tl
}

func TestIsReachable_SameCell(t *testing.T) {
	w := newWorld(t, 20, 20)
	p := Point{5, 5}
	var a world.Actor = walker{id: 1}
	assert.True(t, IsReachable(w, a, p, p))

	// Совпадающие точки не трогают рабочую память поиска
	allocs := testing.AllocsPerRun(100, func() {
		IsReachable(w, a, p, p)
	})
	assert.Zero(t, allocs)
}

func TestIsReachable_OpenField(t *testing.T) {
	w := newWorld(t, 20, 20)
	assert.True(t, IsReachable(w, walker{id: 1}, Point{0, 0}, Point{19, 19}))
}

func TestIsReachable_Endpoints(t *testing.T) {
	w := newWorld(t, 20, 20)
	put(w, 3, 3, item.Rock)

	a := walker{id: 1}
	assert.False(t, IsReachable(w, a, Point{0, 0}, Point{20, 0}))
	assert.False(t, IsReachable(w, a, Point{-1, 0}, Point{1, 1}))
	assert.False(t, IsReachable(w, a, Point{0, 0}, Point{3, 3}), "цель - препятствие")
	assert.False(t, IsReachable(w, a, Point{3, 3}, Point{0, 0}), "старт - препятствие")

	ghost := walker{id: 2, noclip: true}
	assert.True(t, IsReachable(w, ghost, Point{0, 0}, Point{3, 3}))
	assert.True(t, IsReachable(w, ghost, Point{0, 0}, Point{40, 0}))
}

func TestIsReachable_BedrockWall(t *testing.T) {
	w := newWorld(t, 30, 20)
	for y := 0; y < 20; y++ {
		put(w, 15, y, item.Bedrock)
	}
	a := walker{id: 1}
	assert.False(t, IsReachable(w, a, Point{2, 10}, Point{28, 10}))

	// Проход в стене
	tl, _ := w.Get(15, 19)
	tl.RemoveForeground()
	assert.True(t, IsReachable(w, a, Point{2, 10}, Point{28, 10}))
}

func TestIsReachable_PlatformIsPassable(t *testing.T) {
	w := newWorld(t, 5, 3)
	for y := 0; y < 3; y++ {
		put(w, 2, y, item.WoodenPlatform)
	}
	assert.True(t, IsReachable(w, walker{id: 1}, Point{0, 1}, Point{4, 1}))
}

func TestIsReachable_ToggleDoor(t *testing.T) {
	w := newWorld(t, 5, 1)
	door := put(w, 2, 0, item.CircuitDoor)
	a := walker{id: 1}

	assert.False(t, IsReachable(w, a, Point{0, 0}, Point{4, 0}))
	door.Set(tile.FlagOpen)
	assert.True(t, IsReachable(w, a, Point{0, 0}, Point{4, 0}))
}

func TestIsReachable_Gateway(t *testing.T) {
	w := newWorld(t, 7, 1)
	lockTile := put(w, 6, 0, item.SmallLock)
	l, _ := lockTile.LockData()
	l.Owner = 10
	gate := put(w, 3, 0, item.Entrance)
	gate.Claim(w.Index(6, 0), nil)

	stranger := walker{id: 20}
	assert.False(t, IsReachable(w, stranger, Point{0, 0}, Point{5, 0}))
	assert.True(t, IsReachable(w, walker{id: 10}, Point{0, 0}, Point{5, 0}), "владелец замка проходит")

	l.Access.Add(20)
	assert.True(t, IsReachable(w, stranger, Point{0, 0}, Point{5, 0}))

	l.Access.Remove(20)
	gate.Set(tile.FlagPublic)
	assert.True(t, IsReachable(w, stranger, Point{0, 0}, Point{5, 0}))
}

// floodReachable - эталонная проверка связности обходом в ширину
func floodReachable(blocked [][]bool, from, to Point) bool {
	h, wd := len(blocked), len(blocked[0])
	seen := make([][]bool, h)
	for i := range seen {
		seen[i] = make([]bool, wd)
	}
	queue := []Point{from}
	seen[from.Y][from.X] = true
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if p == to {
			return true
		}
		for _, d := range steps {
			n := Point{p.X + d.X, p.Y + d.Y}
			if n.X < 0 || n.Y < 0 || n.X >= wd || n.Y >= h || seen[n.Y][n.X] || blocked[n.Y][n.X] {
				continue
			}
			seen[n.Y][n.X] = true
			queue = append(queue, n)
		}
	}
	return false
}

func TestIsReachable_RandomMazes(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	a := walker{id: 1}
	const size = 12

	for round := 0; round < 300; round++ {
		w := newWorld(t, size, size)
		blocked := make([][]bool, size)
		for y := range blocked {
			blocked[y] = make([]bool, size)
			for x := range blocked[y] {
				if rnd.Float64() < 0.38 {
					blocked[y][x] = true
					put(w, x, y, item.Bedrock)
				}
			}
		}
		from := Point{rnd.Intn(size), rnd.Intn(size)}
		to := Point{rnd.Intn(size), rnd.Intn(size)}
		if blocked[from.Y][from.X] || blocked[to.Y][to.X] {
			continue
		}

		want := floodReachable(blocked, from, to)
		require.Equal(t, want, IsReachable(w, a, from, to), "раунд %d: %v -> %v", round, from, to)
	}
}

func TestWalkBack_SelfParent(t *testing.T) {
	nodes := []node{
		{cell: 0, parent: -1},
		{cell: 1, parent: 0},
		{cell: 2, parent: 2},
	}
	assert.True(t, walkBack(nodes, 1))
	assert.False(t, walkBack(nodes, 2))

	loop := []node{{cell: 0, parent: 1}, {cell: 1, parent: 0}}
	assert.False(t, walkBack(loop, 0), "цикл без старта не подтверждает путь")
}

func TestValidator(t *testing.T) {
	w := newWorld(t, 40, 20)
	v := Validator{}
	a := walker{id: 1}

	assert.NoError(t, v.Check(w, a, Point{0, 0}, Point{6, 8}))
	assert.ErrorIs(t, v.Check(w, a, Point{0, 0}, Point{11, 0}), ErrTooFar)

	for y := 0; y < 20; y++ {
		put(w, 5, y, item.Rock)
	}
	assert.ErrorIs(t, v.Check(w, a, Point{3, 3}, Point{7, 3}), ErrUnreachable)
	assert.NoError(t, v.Check(w, walker{id: 2, noclip: true}, Point{3, 3}, Point{30, 3}))
}
