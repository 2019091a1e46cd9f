package tile

import (
	"time"

	"github.com/annelo/go-tile-server/internal/item"
)

// Tag - байт типа доп. данных клетки
type Tag uint8

const (
	TagDoor              Tag = 1
	TagSign              Tag = 2
	TagLock              Tag = 3
	TagSeed              Tag = 4
	TagDice              Tag = 8
	TagProvider          Tag = 9
	TagMannequin         Tag = 14
	TagGameResource      Tag = 16
	TagSpotlight         Tag = 22
	TagDisplayBlock      Tag = 23
	TagFlag              Tag = 27
	TagWeatherColor      Tag = 28
	TagWeatherBackground Tag = 29
	TagPortrait          Tag = 30
	TagWeatherMachine    Tag = 40
	TagWeatherInfinity   Tag = 41
)

// Extra - доп. данные клетки. Набор реализаций закрыт: каждый вариант
// хранит только свои поля.
type Extra interface {
	Tag() Tag
	extra()
}

// Door - дверь, портал или главная дверь
type Door struct {
	Label       string
	Destination string
	ID          string
}

// Sign - табличка с текстом
type Sign struct {
	Text string
}

// LockSettings - настройки замка
type LockSettings uint8

const (
	// LockIgnoreAir - замок не захватывает пустые клетки
	LockIgnoreAir LockSettings = 1 << iota
	LockPublicMusic
	LockInvisibleMusic
)

// Lock - замок области или мира
type Lock struct {
	Settings LockSettings
	Owner    int32
	Access   AccessList
	// Decay - счетчик дней без посещения владельцем
	Decay uint32
}

// Seed - посаженное дерево
type Seed struct {
	PlantedAt time.Time
	Fruit     uint8
	Spliced   bool
}

// Provider - источник ресурсов (курица, корова и т.п.)
type Provider struct {
	CollectedAt time.Time
}

// BodyParts - количество слотов одежды
const BodyParts = 9

// Mannequin - манекен с одеждой
type Mannequin struct {
	Label    string
	Color    uint32
	Clothing [BodyParts]uint16
}

// Dice - кубик
type Dice struct {
	Face uint8
}

// GameResource - маркер ресурса мини-игры (флаг команды)
type GameResource struct {
	Team uint8
}

// Spotlight - прожектор, Holder - игрок в свете
type Spotlight struct {
	Holder int32
}

// DisplayBlock - витрина с предметом
type DisplayBlock struct {
	Item uint32
}

// CountryFlag - флаг страны
type CountryFlag struct {
	Country string
}

// WeatherColor - погодная машина с цветом
type WeatherColor struct {
	Color uint32
}

// WeatherBackground - погодная машина, показывающая задний план
type WeatherBackground struct {
	Background uint16
}

// Portrait - портрет игрока
type Portrait struct {
	Expression uint8
	Label      string
	SkinColor  uint32
	EyeColor   uint32
	Clothing   [BodyParts]uint16
}

// WeatherMachine - погодная машина с гравитацией и предметом
type WeatherMachine struct {
	Gravity int32
	Spin    bool
	Invert  bool
	Item    uint16
}

// WeatherInfinity - машина, циклически перебирающая погоды
type WeatherInfinity struct {
	// Cycle - период смены погоды в секундах
	Cycle    uint32
	Weathers []uint16
}

func (*Door) Tag() Tag              { return TagDoor }
func (*Sign) Tag() Tag              { return TagSign }
func (*Lock) Tag() Tag              { return TagLock }
func (*Seed) Tag() Tag              { return TagSeed }
func (*Provider) Tag() Tag          { return TagProvider }
func (*Mannequin) Tag() Tag         { return TagMannequin }
func (*Dice) Tag() Tag              { return TagDice }
func (*GameResource) Tag() Tag      { return TagGameResource }
func (*Spotlight) Tag() Tag         { return TagSpotlight }
func (*DisplayBlock) Tag() Tag      { return TagDisplayBlock }
func (*CountryFlag) Tag() Tag       { return TagFlag }
func (*WeatherColor) Tag() Tag      { return TagWeatherColor }
func (*WeatherBackground) Tag() Tag { return TagWeatherBackground }
func (*Portrait) Tag() Tag          { return TagPortrait }
func (*WeatherMachine) Tag() Tag    { return TagWeatherMachine }
func (*WeatherInfinity) Tag() Tag   { return TagWeatherInfinity }

func (*Door) extra()              {}
func (*Sign) extra()              {}
func (*Lock) extra()              {}
func (*Seed) extra()              {}
func (*Provider) extra()          {}
func (*Mannequin) extra()         {}
func (*Dice) extra()              {}
func (*GameResource) extra()      {}
func (*Spotlight) extra()         {}
func (*DisplayBlock) extra()      {}
func (*CountryFlag) extra()       {}
func (*WeatherColor) extra()      {}
func (*WeatherBackground) extra() {}
func (*Portrait) extra()          {}
func (*WeatherMachine) extra()    {}
func (*WeatherInfinity) extra()   {}

// NewExtra создает пустые доп. данные для типа содержимого или nil,
// если тип их не требует
func NewExtra(kind item.Kind, now time.Time) Extra {
	switch kind {
	case item.KindDoor, item.KindPortal, item.KindMainDoor:
		return &Door{}
	case item.KindSign:
		return &Sign{}
	case item.KindLock, item.KindWorldLock:
		return &Lock{}
	case item.KindSeed:
		return &Seed{PlantedAt: now.UTC().Truncate(time.Second)}
	case item.KindProvider:
		return &Provider{CollectedAt: now.UTC().Truncate(time.Second)}
	case item.KindMannequin:
		return &Mannequin{}
	case item.KindDice:
		return &Dice{}
	case item.KindGameResource:
		return &GameResource{}
	case item.KindSpotlight:
		return &Spotlight{}
	case item.KindDisplayBlock:
		return &DisplayBlock{}
	case item.KindFlag:
		return &CountryFlag{}
	case item.KindWeatherColor:
		return &WeatherColor{}
	case item.KindWeatherBackground:
		return &WeatherBackground{}
	case item.KindPortrait:
		return &Portrait{}
	case item.KindWeatherMachine:
		return &WeatherMachine{}
	case item.KindWeatherInfinity:
		return &WeatherInfinity{}
	}
	return nil
}

// CloneExtra возвращает глубокую копию доп. данных
func CloneExtra(e Extra) Extra {
	switch v := e.(type) {
	case nil:
		return nil
	case *Lock:
		c := *v
		c.Access = v.Access.Clone()
		return &c
	case *WeatherInfinity:
		c := *v
		c.Weathers = append([]uint16(nil), v.Weathers...)
		return &c
	case *Door:
		c := *v
		return &c
	case *Sign:
		c := *v
		return &c
	case *Seed:
		c := *v
		return &c
	case *Provider:
		c := *v
		return &c
	case *Mannequin:
		c := *v
		return &c
	case *Dice:
		c := *v
		return &c
	case *GameResource:
		c := *v
		return &c
	case *Spotlight:
		c := *v
		return &c
	case *DisplayBlock:
		c := *v
		return &c
	case *CountryFlag:
		c := *v
		return &c
	case *WeatherColor:
		c := *v
		return &c
	case *WeatherBackground:
		c := *v
		return &c
	case *Portrait:
		c := *v
		return &c
	case *WeatherMachine:
		c := *v
		return &c
	}
	return nil
}
