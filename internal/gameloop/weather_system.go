package gameloop

import (
	"context"
	"errors"
	"time"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

// WeatherSystem переключает погоду в мирах с машиной бесконечной погоды.
// Текущая погода вычисляется по часам: номер периода Cycle по модулю
// числа погод в списке машины.
type WeatherSystem struct {
	deps  Dependencies
	every interval
}

func NewWeatherSystem(check time.Duration) *WeatherSystem {
	if check <= 0 {
		check = time.Second
	}
	return &WeatherSystem{every: interval{period: check}}
}

func (ws *WeatherSystem) Name() string { return "weather" }

func (ws *WeatherSystem) Init(deps Dependencies) error {
	if deps.Pool == nil {
		return errors.New("погоде нужен пул миров")
	}
	ws.deps = deps
	return nil
}

func (ws *WeatherSystem) Tick(ctx context.Context, dt time.Duration) {
	if !ws.every.due(dt) {
		return
	}
	now := ws.deps.Now()
	ws.deps.Pool.Each(func(h *worldpool.Handle) {
		err := h.Update(func(w *world.World) error {
			weather, ok := InfinityWeather(w, now)
			if !ok || weather == w.Weather {
				return nil
			}
			w.Weather = weather
			w.SendAll(packet.Weather(weather))
			ws.deps.Logger.Debugw("погода сменилась", "world", w.Name, "weather", weather)
			return nil
		})
		if err != nil && !errors.Is(err, worldpool.ErrUnloaded) {
			ws.deps.Logger.Warnw("ошибка смены погоды", "world", h.Name(), "error", err)
		}
	})
}

// InfinityWeather возвращает погоду, которую задает первая машина
// бесконечной погоды мира в момент now. false - машин нет.
func InfinityWeather(w *world.World, now time.Time) (uint16, bool) {
	var (
		weather uint16
		found   bool
	)
	w.Each(func(_ int, t *tile.Tile) {
		if found || w.KindOf(t.Foreground) != item.KindWeatherInfinity {
			return
		}
		m, ok := t.Extra.(*tile.WeatherInfinity)
		if !ok || m.Cycle == 0 || len(m.Weathers) == 0 {
			return
		}
		period := now.Unix() / int64(m.Cycle)
		weather = m.Weathers[period%int64(len(m.Weathers))]
		found = true
	})
	return weather, found
}
