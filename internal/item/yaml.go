package item

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlItem - запись каталога в файле items.yaml
type yamlItem struct {
	ID        uint16   `yaml:"id"`
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Collision string   `yaml:"collision"`
	BreakHits uint8    `yaml:"break_hits"`
	Flags     []string `yaml:"flags"`
	LockTier  uint8    `yaml:"lock_tier"`
	Facing    string   `yaml:"facing"`
	Weather   uint16   `yaml:"weather"`
}

type yamlCatalog struct {
	// IncludeDefaults добавляет встроенный каталог перед записями файла
	IncludeDefaults bool       `yaml:"include_defaults"`
	Items           []yamlItem `yaml:"items"`
}

var flagNames = map[string]Flags{
	"untradeable":  FlagUntradeable,
	"mirror_owner": FlagMirrorOwner,
	"permanent":    FlagPermanent,
}

var facingNames = map[string]Facing{
	"":      FacingNone,
	"up":    FacingUp,
	"down":  FacingDown,
	"left":  FacingLeft,
	"right": FacingRight,
}

// LoadYAML загружает каталог предметов из файла
func LoadYAML(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(raw)
}

// ParseYAML разбирает каталог предметов из байт
func ParseYAML(raw []byte) (*Registry, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("items.yaml: %w", err)
	}

	reg := NewRegistry()
	if doc.IncludeDefaults {
		reg = Default()
	}

	for i, it := range doc.Items {
		m, err := it.metadata()
		if err != nil {
			return nil, fmt.Errorf("items.yaml: запись %d (id %d): %w", i, it.ID, err)
		}
		reg.Register(m)
	}
	return reg, nil
}

func (it yamlItem) metadata() (Metadata, error) {
	kind, err := ParseKind(it.Kind)
	if err != nil {
		return Metadata{}, err
	}

	collision := CollisionNone
	if it.Collision != "" {
		c, ok := collisionNames[it.Collision]
		if !ok {
			return Metadata{}, fmt.Errorf("неизвестный класс столкновений %q", it.Collision)
		}
		collision = c
	}

	var flags Flags
	for _, name := range it.Flags {
		f, ok := flagNames[name]
		if !ok {
			return Metadata{}, fmt.Errorf("неизвестная категория %q", name)
		}
		flags |= f
	}

	facing, ok := facingNames[it.Facing]
	if !ok {
		return Metadata{}, fmt.Errorf("неизвестное направление %q", it.Facing)
	}

	if kind == KindLock && (it.LockTier < TierSmall || it.LockTier > TierLarge) {
		return Metadata{}, fmt.Errorf("замок должен иметь lock_tier 1..3")
	}

	return Metadata{
		ID:        it.ID,
		Name:      it.Name,
		Kind:      kind,
		Collision: collision,
		BreakHits: it.BreakHits,
		Flags:     flags,
		LockTier:  it.LockTier,
		Facing:    facing,
		Weather:   it.Weather,
	}, nil
}
