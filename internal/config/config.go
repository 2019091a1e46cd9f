// Package config загружает настройки сервера из YAML-файла, переменных
// окружения (в том числе из .env) и флагов командной строки.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Префикс переменных окружения
const envPrefix = "TILE_"

// Драйверы хранилища снимков
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Storage - где хранятся снимки миров
type Storage struct {
	Driver string `yaml:"driver"`
	// Path - каталог для file, файл базы для sqlite
	Path string `yaml:"path"`
}

// World - параметры генерации новых миров
type World struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`
}

// Config - настройки сервера
type Config struct {
	Listen      string  `yaml:"listen"`
	AdminListen string  `yaml:"admin_listen"`
	Storage     Storage `yaml:"storage"`
	World       World   `yaml:"world"`
	// ItemsFile - каталог предметов; пусто - встроенный
	ItemsFile string `yaml:"items_file"`

	Tick         time.Duration `yaml:"tick"`
	Autosave     time.Duration `yaml:"autosave"`
	WeatherCheck time.Duration `yaml:"weather_check"`

	QueueSize  int     `yaml:"queue_size"`
	MaxMove    int     `yaml:"max_move"`
	Moderators []int32 `yaml:"moderators"`

	LogLevel string `yaml:"log_level"`
	// AllowedOrigins - CORS для админского HTTP
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Defaults возвращает настройки по умолчанию
func Defaults() Config {
	return Config{
		Listen:         ":50051",
		AdminListen:    ":8080",
		Storage:        Storage{Driver: DriverFile, Path: "data/worlds"},
		World:          World{Width: 100, Height: 60},
		Tick:           50 * time.Millisecond,
		Autosave:       5 * time.Minute,
		WeatherCheck:   time.Second,
		QueueSize:      1024,
		MaxMove:        10,
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
	}
}

// Load читает настройки из path поверх значений по умолчанию и применяет
// переменные окружения. Отсутствующий файл не считается ошибкой.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("разбор конфигурации %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv загружает переменные из .env-файлов, не перезаписывая заданные.
// Отсутствующие файлы пропускаются.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("загрузка %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LISTEN":         &c.Listen,
		"ADMIN_LISTEN":   &c.AdminListen,
		"STORAGE_DRIVER": &c.Storage.Driver,
		"STORAGE_PATH":   &c.Storage.Path,
		"ITEMS_FILE":     &c.ItemsFile,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "WORLD_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sWORLD_SEED: %w", envPrefix, err)
		}
		c.World.Seed = seed
	}
	if v, ok := os.LookupEnv(envPrefix + "AUTOSAVE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sAUTOSAVE: %w", envPrefix, err)
		}
		c.Autosave = d
	}
	return nil
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("неизвестный драйвер хранилища %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return errors.New("не указан путь хранилища")
	}
	if c.Listen == "" {
		return errors.New("не указан адрес gRPC")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("недопустимая длительность тика %s", c.Tick)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("недопустимый размер мира %dx%d", c.World.Width, c.World.Height)
	}
	return nil
}

// Logger создает логгер с уровнем LogLevel
func (c Config) Logger() (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("уровень логирования %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	if level.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
