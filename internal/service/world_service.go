// Package service реализует gRPC WorldService: вход в мир, поток событий,
// действия игроков с клетками и выход.
package service

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/circuit"
	"github.com/annelo/go-tile-server/internal/pathfind"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

// Options - зависимости сервиса
type Options struct {
	Pool   *worldpool.Pool
	Logger *zap.SugaredLogger
	// QueueSize - емкость очередей отправки каждой сессии
	QueueSize int
	// MaxMove - предел перемещения в клетках, 0 - значение по умолчанию
	MaxMove int
	// Moderators - id игроков с ролью модератора
	Moderators []int32
	// Rand - источник случайности для перемешивателей в трубах
	Rand circuit.Rand
}

// WorldService - реализация WorldServer поверх пула миров
type WorldService struct {
	pool      *worldpool.Pool
	sessions  *actor.Registry
	validator pathfind.Validator
	rnd       circuit.Rand
	logger    *zap.SugaredLogger

	queueSize  int
	moderators map[int32]bool

	stopOnce sync.Once
}

var _ WorldServer = (*WorldService)(nil)

// NewWorldService создает сервис
func NewWorldService(opts Options) *WorldService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	mods := make(map[int32]bool, len(opts.Moderators))
	for _, id := range opts.Moderators {
		mods[id] = true
	}
	return &WorldService{
		pool:       opts.Pool,
		sessions:   actor.NewRegistry(),
		validator:  pathfind.Validator{MaxDistance: opts.MaxMove},
		rnd:        rnd,
		logger:     logger,
		queueSize:  opts.QueueSize,
		moderators: mods,
	}
}

// Sessions возвращает реестр подключенных игроков
func (s *WorldService) Sessions() *actor.Registry {
	return s.sessions
}

func (s *WorldService) roleOf(user int32) actor.Role {
	if s.moderators[user] {
		return actor.RoleModerator
	}
	return actor.RolePlayer
}

// lockedRand - math/rand.Rand, безопасный для нескольких миров одновременно
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
