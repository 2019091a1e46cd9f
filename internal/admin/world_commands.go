package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/lock"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

// operator - администратор консоли как участник мира: доступ ко всем клеткам
type operator struct{}

func (operator) UserID() int32                                     { return 0 }
func (operator) IsOwner(*world.World) bool                         { return true }
func (operator) HasEditAccess(*world.World, int, int, uint16) bool { return true }
func (operator) CanNoClip() bool                                   { return true }
func (operator) Send([]byte)                                       {}

var editActions = map[string]world.EditAction{
	"add":   world.EditAdd,
	"erase": world.EditErase,
	"drop":  world.EditDrop,
	"clear": world.EditRemoveObjects,
}

// registerWorldCommands - команды редактирования загруженных миров.
// Изменения сразу рассылаются игрокам мира.
func registerWorldCommands(c *Commands, core Core) {
	c.Register("access", "Доступ к замку: access <мир> <x> <y> add|remove <id>", func(_ context.Context, args []string) (string, error) {
		if len(args) != 5 {
			return "Использование: access <мир> <x> <y> add|remove <id>\n", nil
		}
		x, y, err := cell(args[1], args[2])
		if err != nil {
			return "", err
		}
		user, err := strconv.ParseInt(args[4], 10, 32)
		if err != nil {
			return "", fmt.Errorf("неверный id %q", args[4])
		}

		var changed bool
		err = update(core.Pool, args[0], func(w *world.World) error {
			if !w.InBounds(x, y) {
				return fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
			}
			var err error
			switch args[3] {
			case "add":
				changed, err = lock.AddAccess(w, w.Index(x, y), int32(user))
			case "remove":
				changed, err = lock.RemoveAccess(w, w.Index(x, y), int32(user))
			default:
				return fmt.Errorf("неизвестное действие %q", args[3])
			}
			if err != nil || !changed {
				return err
			}
			w.SendAll(w.TileUpdate(x, y))
			return nil
		})
		if err != nil {
			return "", err
		}
		if !changed {
			return "Список доступа не изменился\n", nil
		}
		return fmt.Sprintf("Доступ игрока %d: %s\n", user, args[3]), nil
	})

	c.Register("lockcfg", "Настройки замка: lockcfg <мир> <x> <y> air|all", func(_ context.Context, args []string) (string, error) {
		if len(args) != 4 {
			return "Использование: lockcfg <мир> <x> <y> air|all\n", nil
		}
		x, y, err := cell(args[1], args[2])
		if err != nil {
			return "", err
		}
		var settings tile.LockSettings
		switch args[3] {
		case "air":
			settings = tile.LockIgnoreAir
		case "all":
		default:
			return "", fmt.Errorf("неизвестная настройка %q", args[3])
		}

		var claim lock.Claim
		err = update(core.Pool, args[0], func(w *world.World) error {
			if !w.InBounds(x, y) {
				return fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
			}
			lockIndex := w.Index(x, y)
			before := claimedBy(w, lockIndex)
			var err error
			if claim, err = lock.Configure(w, lockIndex, settings); err != nil {
				return err
			}
			w.SendAll(claim.Payload())
			w.SendAll(w.TileBatch(union(lockIndex, before, claim.Cells)))
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Замок (%d,%d): клеток в области %d\n", x, y, len(claim.Cells)), nil
	})

	c.Register("edit", "Правка круга: edit <мир> add|erase|drop|clear <x> <y> <радиус> <id> [bypass]", func(_ context.Context, args []string) (string, error) {
		if len(args) < 6 || len(args) > 7 {
			return "Использование: edit <мир> add|erase|drop|clear <x> <y> <радиус> <id> [bypass]\n", nil
		}
		action, ok := editActions[args[1]]
		if !ok {
			return "", fmt.Errorf("неизвестное действие %q", args[1])
		}
		x, y, err := cell(args[2], args[3])
		if err != nil {
			return "", err
		}
		radius, err := strconv.ParseFloat(args[4], 64)
		if err != nil || radius < 0 {
			return "", fmt.Errorf("неверный радиус %q", args[4])
		}
		id, err := strconv.ParseUint(args[5], 10, 16)
		if err != nil {
			return "", fmt.Errorf("неверный предмет %q", args[5])
		}
		// bypass разрешает перезапись замков и несокрушимых предметов
		bypass := len(args) == 7 && args[6] == "bypass"

		var n int
		err = update(core.Pool, args[0], func(w *world.World) error {
			out, changed, err := w.EditRegion(operator{}, action, x, y, radius, uint16(id), bypass)
			if err != nil {
				return err
			}
			for _, payload := range out {
				w.SendAll(payload)
			}
			n = changed
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Изменено: %d\n", n), nil
	})

	c.Register("weather", "Цикл погоды: weather <мир> <x> <y> <период, с> <id,id,...>", func(_ context.Context, args []string) (string, error) {
		if len(args) != 5 {
			return "Использование: weather <мир> <x> <y> <период, с> <id,id,...>\n", nil
		}
		x, y, err := cell(args[1], args[2])
		if err != nil {
			return "", err
		}
		cycle, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil || cycle == 0 {
			return "", fmt.Errorf("неверный период %q", args[3])
		}
		var weathers []uint16
		for _, s := range strings.Split(args[4], ",") {
			id, err := strconv.ParseUint(s, 10, 16)
			if err != nil {
				return "", fmt.Errorf("неверная погода %q", s)
			}
			weathers = append(weathers, uint16(id))
		}

		err = update(core.Pool, args[0], func(w *world.World) error {
			t, ok := w.Get(x, y)
			if !ok {
				return fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
			}
			machine, ok := t.Extra.(*tile.WeatherInfinity)
			if !ok || w.KindOf(t.Foreground) != item.KindWeatherInfinity {
				return fmt.Errorf("в клетке (%d,%d) нет бесконечной погодной машины", x, y)
			}
			machine.Cycle = uint32(cycle)
			machine.Weathers = weathers
			w.MarkDirty()
			w.SendAll(w.TileUpdate(x, y))
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Погод в цикле: %d\n", len(weathers)), nil
	})

	c.Register("objects", "Выпавшие предметы: objects <мир>", func(_ context.Context, args []string) (string, error) {
		if len(args) != 1 {
			return "Использование: objects <мир>\n", nil
		}
		h, err := loaded(core.Pool, args[0])
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		err = h.View(func(w *world.World) error {
			for _, o := range w.Objects() {
				x, y := o.Cell()
				fmt.Fprintf(&sb, "%d предмет=%d x%d (%d,%d)\n", o.ID, o.Item, o.Count, x, y)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		if sb.Len() == 0 {
			return "Предметов нет\n", nil
		}
		return sb.String(), nil
	})

	c.Register("pickup", "Убрать выпавший предмет: pickup <мир> <id>", func(_ context.Context, args []string) (string, error) {
		if len(args) != 2 {
			return "Использование: pickup <мир> <id>\n", nil
		}
		id, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return "", fmt.Errorf("неверный id %q", args[1])
		}
		err = update(core.Pool, args[0], func(w *world.World) error {
			if _, ok := w.Pickup(uint32(id)); !ok {
				return fmt.Errorf("предмета %d нет", id)
			}
			w.SendAll(world.ObjectsRemoved(uint32(id)))
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Предмет %d убран\n", id), nil
	})
}

func loaded(pool *worldpool.Pool, name string) (*worldpool.Handle, error) {
	h, ok := pool.Loaded(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", worldpool.ErrNotLoaded, strings.ToUpper(name))
	}
	return h, nil
}

func update(pool *worldpool.Pool, name string, fn func(w *world.World) error) error {
	h, err := loaded(pool, name)
	if err != nil {
		return err
	}
	return h.Update(fn)
}

func cell(xs, ys string) (int, int, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("неверная координата %q", xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("неверная координата %q", ys)
	}
	return x, y, nil
}

// claimedBy - клетки, привязанные к замку
func claimedBy(w *world.World, lockIndex int) []int {
	var cells []int
	w.Each(func(i int, t *tile.Tile) {
		if i != lockIndex && t.Parent == lockIndex {
			cells = append(cells, i)
		}
	})
	return cells
}

func union(lockIndex int, sets ...[]int) []int {
	seen := map[int]bool{lockIndex: true}
	out := []int{lockIndex}
	for _, s := range sets {
		for _, i := range s {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	return out
}
