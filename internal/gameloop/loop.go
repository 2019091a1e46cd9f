// Package gameloop крутит тики сервера и вызывает системы: автосохранение
// миров и смену погоды машинами бесконечной погоды.
package gameloop

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loop - главный цикл, вызывающий Tick всех зарегистрированных систем.
type Loop struct {
	systems []System
	tickDur time.Duration
	logger  *zap.SugaredLogger
}

// NewLoop создаёт цикл с заданной длительностью тика.
func NewLoop(tick time.Duration, deps Dependencies, systems ...System) *Loop {
	deps = deps.withDefaults()
	active := make([]System, 0, len(systems))
	for _, s := range systems {
		if err := s.Init(deps); err != nil {
			deps.Logger.Errorw("система не инициализирована", "system", s.Name(), "error", err)
			continue
		}
		active = append(active, s)
	}
	return &Loop{systems: active, tickDur: tick, logger: deps.Logger}
}

// Systems возвращает инициализированные системы в порядке вызова
func (l *Loop) Systems() []System {
	return l.systems
}

// Run запускает цикл до отмены ctx.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickDur)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case t := <-ticker.C:
			dt := t.Sub(last)
			last = t
			l.Step(ctx, dt)
		case <-ctx.Done():
			l.logger.Infow("игровой цикл остановлен")
			return
		}
	}
}

// Step выполняет один тик всех систем. Паника системы не останавливает цикл.
func (l *Loop) Step(ctx context.Context, dt time.Duration) {
	for _, s := range l.systems {
		func(sys System) {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Errorw("паника в системе", "system", sys.Name(), "panic", r)
				}
			}()
			sys.Tick(ctx, dt)
		}(s)
	}
}
