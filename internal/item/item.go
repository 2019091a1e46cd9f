// Package item описывает метаданные предметов (только чтение): тип, класс
// столкновений, прочность и категории. Каталог загружается из YAML или
// берется встроенный.
package item

import (
	"fmt"
	"sort"
	"sync"
)

// Kind определяет поведение предмета в мире
type Kind uint8

const (
	KindNone Kind = iota
	KindBlock
	KindBackground
	KindBedrock
	KindMainDoor
	KindDoor
	KindPortal
	KindSign
	KindLock
	KindWorldLock
	KindSeed
	KindProvider
	KindMannequin
	KindDice
	KindGameResource
	KindSpotlight
	KindDisplayBlock
	KindFlag
	KindWeatherColor
	KindWeatherBackground
	KindPortrait
	KindWeatherMachine
	KindWeatherInfinity
	KindPipe
	KindFunnel
	KindSideFunnel
	KindCrossover
	KindScrambler
	KindVent
	KindLauncher
	KindLamp
	KindSpikes
	KindCircuitDoor
	kindCount
)

var kindNames = [...]string{
	KindNone:              "none",
	KindBlock:             "block",
	KindBackground:        "background",
	KindBedrock:           "bedrock",
	KindMainDoor:          "main_door",
	KindDoor:              "door",
	KindPortal:            "portal",
	KindSign:              "sign",
	KindLock:              "lock",
	KindWorldLock:         "world_lock",
	KindSeed:              "seed",
	KindProvider:          "provider",
	KindMannequin:         "mannequin",
	KindDice:              "dice",
	KindGameResource:      "game_resource",
	KindSpotlight:         "spotlight",
	KindDisplayBlock:      "display_block",
	KindFlag:              "flag",
	KindWeatherColor:      "weather_color",
	KindWeatherBackground: "weather_background",
	KindPortrait:          "portrait",
	KindWeatherMachine:    "weather_machine",
	KindWeatherInfinity:   "weather_infinity",
	KindPipe:              "pipe",
	KindFunnel:            "funnel",
	KindSideFunnel:        "side_funnel",
	KindCrossover:         "crossover",
	KindScrambler:         "scrambler",
	KindVent:              "vent",
	KindLauncher:          "launcher",
	KindLamp:              "lamp",
	KindSpikes:            "spikes",
	KindCircuitDoor:       "circuit_door",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind возвращает тип по имени из YAML-каталога
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return KindNone, fmt.Errorf("неизвестный тип предмета %q", name)
}

// IsLock сообщает, является ли тип замком любой разновидности
func (k Kind) IsLock() bool {
	return k == KindLock || k == KindWorldLock
}

// IsNetwork сообщает, проводит ли клетка импульс (трубы, воронки, перекрестки)
func (k Kind) IsNetwork() bool {
	switch k {
	case KindPipe, KindFunnel, KindSideFunnel, KindCrossover, KindScrambler:
		return true
	}
	return false
}

// IsActuator сообщает, переключается ли устройство импульсом
func (k Kind) IsActuator() bool {
	switch k {
	case KindVent, KindCircuitDoor, KindLauncher, KindLamp, KindSpikes:
		return true
	}
	return false
}

// Collision - класс столкновений предмета
type Collision uint8

const (
	CollisionNone     Collision = iota // Проходимый
	CollisionSolid                     // Твердый
	CollisionPlatform                  // Односторонняя платформа, проходима
	CollisionGateway                   // Проходим только для имеющих доступ
	CollisionToggle                    // Твердый, пока не открыт импульсом
)

var collisionNames = map[string]Collision{
	"none":     CollisionNone,
	"solid":    CollisionSolid,
	"platform": CollisionPlatform,
	"gateway":  CollisionGateway,
	"toggle":   CollisionToggle,
}

// Flags - категории предмета
type Flags uint16

const (
	FlagUntradeable Flags = 1 << iota
	// FlagMirrorOwner: замок добавляет владельца мира в список доступа области
	FlagMirrorOwner
	// FlagPermanent: предмет нельзя сломать
	FlagPermanent
)

// Facing - фиксированное направление устройства
type Facing uint8

const (
	FacingNone Facing = iota
	FacingUp
	FacingDown
	FacingLeft
	FacingRight
)

// Metadata - метаданные одного предмета
type Metadata struct {
	ID        uint16
	Name      string
	Kind      Kind
	Collision Collision
	BreakHits uint8
	Flags     Flags
	// LockTier - размер области замка (0 - не замок)
	LockTier uint8
	Facing   Facing
	// Weather - id погоды, которую включает погодная машина
	Weather uint16
}

// Has проверяет наличие категории
func (m Metadata) Has(f Flags) bool {
	return m.Flags&f != 0
}

// Catalog - узкий интерфейс поиска метаданных по id
type Catalog interface {
	Lookup(id uint16) (Metadata, bool)
}

// Registry - потокобезопасный каталог предметов в памяти
type Registry struct {
	mu    sync.RWMutex
	items map[uint16]Metadata
}

// NewRegistry создает каталог из списка предметов
func NewRegistry(items ...Metadata) *Registry {
	r := &Registry{items: make(map[uint16]Metadata, len(items))}
	for _, m := range items {
		r.items[m.ID] = m
	}
	return r
}

// Register добавляет или заменяет предмет
func (r *Registry) Register(m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[m.ID] = m
}

// Lookup возвращает метаданные предмета
func (r *Registry) Lookup(id uint16) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[id]
	return m, ok
}

// All возвращает все предметы, отсортированные по id
func (r *Registry) All() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
