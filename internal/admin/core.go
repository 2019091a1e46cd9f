package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

// Players - подключенные игроки
type Players interface {
	Sessions() *actor.Registry
	Kick(ctx context.Context, user int32, reason string) error
}

// Core - зависимости встроенных команд
type Core struct {
	Pool    *worldpool.Pool
	Players Players
	// Stop останавливает сервер
	Stop func()
}

// RegisterCore регистрирует встроенные команды консоли
func RegisterCore(c *Commands, core Core) {
	c.Register("help", "Список команд", func(context.Context, []string) (string, error) {
		return c.Help(), nil
	})

	c.Register("worlds", "Загруженные миры", func(context.Context, []string) (string, error) {
		var sb strings.Builder
		core.Pool.Each(func(h *worldpool.Handle) {
			info, err := h.Info()
			if err != nil {
				return
			}
			fmt.Fprintf(&sb, "%s %dx%d игроков=%d владелец=%d изменен=%t\n",
				info.Name, info.Width, info.Height, info.Players, info.Owner, info.Dirty)
		})
		if sb.Len() == 0 {
			return "Нет загруженных миров\n", nil
		}
		return sb.String(), nil
	})

	c.Register("save", "Сохранить мир: save [имя]; без имени - все измененные", func(ctx context.Context, args []string) (string, error) {
		if len(args) > 0 {
			if err := core.Pool.Save(ctx, args[0]); err != nil {
				return "", err
			}
			return fmt.Sprintf("Мир %s сохранен\n", strings.ToUpper(args[0])), nil
		}
		n, err := core.Pool.SaveDirty(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Сохранено миров: %d\n", n), nil
	})

	registerWorldCommands(c, core)

	if core.Players != nil {
		c.Register("players", "Подключенные игроки", func(context.Context, []string) (string, error) {
			var sb strings.Builder
			for _, s := range core.Players.Sessions().All() {
				x, y := s.Position()
				fmt.Fprintf(&sb, "%d %s %s (%d,%d)\n", s.User, s.Name, s.World(), x, y)
			}
			if sb.Len() == 0 {
				return "Нет игроков\n", nil
			}
			return sb.String(), nil
		})

		c.Register("kick", "Отключить игрока: kick <id> [причина]", func(ctx context.Context, args []string) (string, error) {
			if len(args) < 1 {
				return "Использование: kick <id> [причина]\n", nil
			}
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return "", fmt.Errorf("неверный id %q", args[0])
			}
			reason := "Вы отключены администратором"
			if len(args) > 1 {
				reason = strings.Join(args[1:], " ")
			}
			if err := core.Players.Kick(ctx, int32(id), reason); err != nil {
				return "", err
			}
			return fmt.Sprintf("Игрок %d отключен\n", id), nil
		})
	}

	if core.Stop != nil {
		c.Register("stop", "Остановить сервер", func(context.Context, []string) (string, error) {
			core.Stop()
			return "Сервер останавливается\n", nil
		})
	}
}
