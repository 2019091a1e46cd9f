package gameloop

import (
	"context"
	"errors"
	"time"
)

// DefaultAutosaveInterval - период автосохранения по умолчанию
const DefaultAutosaveInterval = 5 * time.Minute

// AutosaveSystem периодически сохраняет измененные миры.
type AutosaveSystem struct {
	deps  Dependencies
	every interval
}

func NewAutosaveSystem(period time.Duration) *AutosaveSystem {
	if period <= 0 {
		period = DefaultAutosaveInterval
	}
	return &AutosaveSystem{every: interval{period: period}}
}

func (a *AutosaveSystem) Name() string { return "autosave" }

func (a *AutosaveSystem) Init(deps Dependencies) error {
	if deps.Pool == nil {
		return errors.New("автосохранению нужен пул миров")
	}
	a.deps = deps
	return nil
}

func (a *AutosaveSystem) Tick(ctx context.Context, dt time.Duration) {
	if !a.every.due(dt) {
		return
	}
	saved, err := a.deps.Pool.SaveDirty(ctx)
	if err != nil {
		a.deps.Logger.Errorw("ошибка автосохранения", "saved", saved, "error", err)
		return
	}
	if saved > 0 {
		a.deps.Logger.Infow("автосохранение", "worlds", saved)
	}
}
