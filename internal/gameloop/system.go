package gameloop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/annelo/go-tile-server/internal/worldpool"
)

// System описывает логику, выполняемую каждый тик цикла.
type System interface {
	// Init вызывается один раз перед запуском цикла.
	Init(deps Dependencies) error
	// Tick вызывается каждый игровой тик.
	Tick(ctx context.Context, dt time.Duration)
	// Name возвращает читаемое имя системы.
	Name() string
}

// Dependencies передаются системам при инициализации.
type Dependencies struct {
	Pool   *worldpool.Pool
	Logger *zap.SugaredLogger
	// Now - источник времени, по умолчанию time.Now
	Now func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// interval накапливает время тиков и срабатывает раз в period
type interval struct {
	period  time.Duration
	elapsed time.Duration
}

func (i *interval) due(dt time.Duration) bool {
	i.elapsed += dt
	if i.elapsed < i.period {
		return false
	}
	i.elapsed = 0
	return true
}
