// Package pathfind проверяет достижимость клетки по 4-связному графу мира
// (защита от телепортов). Рабочая память поиска живет только в течение
// одного вызова и в клетки мира не попадает.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

// Point - клетка мира
type Point struct {
	X, Y int
}

var steps = [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Obstacle сообщает, непроходима ли клетка для игрока
func Obstacle(w *world.World, a world.Actor, t *tile.Tile) bool {
	if t.Foreground == 0 {
		return false
	}
	meta, ok := w.Items().Lookup(t.Foreground)
	if !ok {
		return true
	}
	switch meta.Collision {
	case item.CollisionSolid:
		return true
	case item.CollisionGateway:
		return !t.Has(tile.FlagPublic) && !hasAccess(w, a, t)
	case item.CollisionToggle:
		return !t.Has(tile.FlagOpen)
	}
	return false
}

func hasAccess(w *world.World, a world.Actor, t *tile.Tile) bool {
	if a.IsOwner(w) {
		return true
	}
	l, ok := w.RegionLock(t)
	if !ok {
		return true
	}
	id := a.UserID()
	return l.Owner == id || l.Access.Contains(id)
}

// IsReachable сообщает, можно ли пройти из from в to. Совпадающие точки
// достижимы без поиска; игрок с no-clip проходит куда угодно.
func IsReachable(w *world.World, a world.Actor, from, to Point) bool {
	return search(w, a, from, to, 0)
}

// node - запись арены поиска
type node struct {
	cell   int
	g, f   float64
	parent int32
}

// arena - рабочая память одного поиска: узлы и индекс "клетка -> узел"
type arena struct {
	nodes []node
	index map[int]int32
}

func (ar *arena) add(cell int, g, f float64, parent int32) int32 {
	ref := int32(len(ar.nodes))
	ar.nodes = append(ar.nodes, node{cell: cell, g: g, f: f, parent: parent})
	ar.index[cell] = ref
	return ref
}

// frontier - куча ссылок на узлы по возрастанию f
type frontier struct {
	refs  []int32
	nodes *[]node
}

func (q *frontier) Len() int { return len(q.refs) }
func (q *frontier) Less(i, j int) bool {
	a, b := &(*q.nodes)[q.refs[i]], &(*q.nodes)[q.refs[j]]
	if a.f != b.f {
		return a.f < b.f
	}
	return q.refs[i] < q.refs[j]
}
func (q *frontier) Swap(i, j int) { q.refs[i], q.refs[j] = q.refs[j], q.refs[i] }
func (q *frontier) Push(x any) { q.refs = append(q.refs, x.(int32)) }
func (q *frontier) Pop() any {
	old := q.refs
	n := len(old)
	ref := old[n-1]
	q.refs = old[:n-1]
	return ref
}

// search ищет путь A*; limit > 0 ограничивает число узлов арены
func search(w *world.World, a world.Actor, from, to Point, limit int) bool {
	if from == to {
		return true
	}
	if a.CanNoClip() {
		return true
	}

	start, ok := w.Get(from.X, from.Y)
	if !ok || Obstacle(w, a, start) {
		return false
	}
	goal, ok := w.Get(to.X, to.Y)
	if !ok || Obstacle(w, a, goal) {
		return false
	}
	goalIndex := w.Index(to.X, to.Y)

	heuristic := func(x, y int) float64 {
		return math.Hypot(float64(x-to.X), float64(y-to.Y))
	}

	ar := &arena{index: make(map[int]int32)}
	q := &frontier{nodes: &ar.nodes}
	heap.Push(q, ar.add(w.Index(from.X, from.Y), 0, heuristic(from.X, from.Y), -1))

	found := int32(-1)
	for q.Len() > 0 {
		ref := heap.Pop(q).(int32)
		cur := ar.nodes[ref]
		if cur.cell == goalIndex {
			found = ref
			break
		}

		// Каждая клетка попадает в кучу один раз, повторно узел не раскрывается
		cx, cy := w.Coords(cur.cell)
		g := cur.g
		for _, d := range steps {
			nx, ny := cx+d.X, cy+d.Y
			t, ok := w.Get(nx, ny)
			if !ok {
				continue
			}
			cell := w.Index(nx, ny)
			if _, seen := ar.index[cell]; seen || Obstacle(w, a, t) {
				continue
			}
			if limit > 0 && len(ar.nodes) >= limit {
				return false
			}
			step := math.Hypot(float64(d.X), float64(d.Y))
			heap.Push(q, ar.add(cell, g+step, g+step+heuristic(nx, ny), ref))
		}
	}
	if found < 0 {
		return false
	}
	return walkBack(ar.nodes, found)
}

// walkBack проходит по родителям от цели к старту. Узел, ссылающийся сам
// на себя, означает испорченную арену: путь не подтверждается.
func walkBack(nodes []node, from int32) bool {
	cur := from
	for n := 0; n <= len(nodes); n++ {
		parent := nodes[cur].parent
		if parent < 0 {
			return true
		}
		if parent == cur {
			return false
		}
		cur = parent
	}
	return false
}
