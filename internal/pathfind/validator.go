package pathfind

import (
	"errors"
	"fmt"
	"math"

	"github.com/annelo/go-tile-server/internal/world"
)

// MaxMoveDistance - наибольшее расстояние одного перемещения в клетках
const MaxMoveDistance = 10

var (
	ErrTooFar      = errors.New("слишком далекое перемещение")
	ErrUnreachable = errors.New("клетка недостижима")
)

// Validator проверяет перемещения игроков
type Validator struct {
	// MaxDistance - предел расстояния, 0 - MaxMoveDistance
	MaxDistance int
}

func (v Validator) maxDistance() int {
	if v.MaxDistance <= 0 {
		return MaxMoveDistance
	}
	return v.MaxDistance
}

// Check возвращает ошибку, если перемещение from -> to недопустимо.
// Поиск ограничен окрестностью, соразмерной пределу расстояния.
func (v Validator) Check(w *world.World, a world.Actor, from, to Point) error {
	limit := v.maxDistance()
	if !a.CanNoClip() && math.Hypot(float64(to.X-from.X), float64(to.Y-from.Y)) > float64(limit) {
		return fmt.Errorf("%w: (%d,%d) -> (%d,%d)", ErrTooFar, from.X, from.Y, to.X, to.Y)
	}
	side := 4*limit + 1
	if !search(w, a, from, to, side*side) {
		return fmt.Errorf("%w: (%d,%d) -> (%d,%d)", ErrUnreachable, from.X, from.Y, to.X, to.Y)
	}
	return nil
}
