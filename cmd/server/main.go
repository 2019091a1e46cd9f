package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
	yaml "gopkg.in/yaml.v3"

	"github.com/annelo/go-tile-server/internal/admin"
	"github.com/annelo/go-tile-server/internal/config"
	"github.com/annelo/go-tile-server/internal/gameloop"
	"github.com/annelo/go-tile-server/internal/generator"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/service"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

var (
	configPath = flag.String("config", "server.yaml", "Путь к файлу конфигурации")
	envFile    = flag.String("env", ".env", "Файл переменных окружения")
	listen     = flag.String("listen", "", "Адрес gRPC сервера (перекрывает конфигурацию)")
	adminAddr  = flag.String("admin", "", "Адрес служебного HTTP (перекрывает конфигурацию)")
	driver     = flag.String("storage", "", "Хранилище миров: file или sqlite")
	storePath  = flag.String("path", "", "Каталог или файл хранилища")
	seed       = flag.Int64("seed", 0, "Сид генерации миров (0 = из конфигурации или случайный)")
	console    = flag.Bool("console", true, "Читать команды администратора из stdin")
)

func main() {
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		log.Fatalf("Не удалось загрузить %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	// Если сид не указан, генерируем случайный
	if cfg.World.Seed == 0 {
		cfg.World.Seed = time.Now().UnixNano()
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("Не удалось создать логгер: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	items, err := loadItems(cfg.ItemsFile)
	if err != nil {
		log.Fatalf("Каталог предметов: %v", err)
	}

	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		log.Fatalf("Не удалось открыть хранилище: %v", err)
	}
	log.Printf("Хранилище миров (%s) открыто: %s", cfg.Storage.Driver, cfg.Storage.Path)

	pool := worldpool.New(worldpool.Options{
		Items:    items,
		Store:    store,
		Generate: generate(cfg.World, items),
		Logger:   logger.Named("pool"),
	})
	worldService := service.NewWorldService(service.Options{
		Pool:       pool,
		Logger:     logger.Named("service"),
		QueueSize:  cfg.QueueSize,
		MaxMove:    cfg.MaxMove,
		Moderators: cfg.Moderators,
	})

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatalf("Не удалось создать слушателя: %v", err)
	}
	grpcServer := grpc.NewServer()
	service.RegisterWorldServer(grpcServer, worldService)
	// Включаем reflection для инструментов вроде grpcurl
	reflection.Register(grpcServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := gameloop.NewLoop(cfg.Tick, gameloop.Dependencies{Pool: pool, Logger: logger.Named("loop")},
		gameloop.NewAutosaveSystem(cfg.Autosave),
		gameloop.NewWeatherSystem(cfg.WeatherCheck),
	)
	go loop.Run(ctx)

	var adminServer *http.Server
	if cfg.AdminListen != "" {
		adminServer = &http.Server{
			Addr: cfg.AdminListen,
			Handler: admin.NewRouter(admin.RouterOptions{
				Pool:           pool,
				Store:          store,
				AllowedOrigins: cfg.AllowedOrigins,
				Logger:         logger.Named("admin"),
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			log.Printf("Служебный HTTP на %s", cfg.AdminListen)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Служебный HTTP остановлен: %v", err)
			}
		}()
	}

	var stopOnce sync.Once
	stopped := make(chan struct{})
	shutdown := func() {
		stopOnce.Do(func() {
			log.Println("Останавливаем сервер...")
			cancel() // Отменяем контекст для всех сервисных задач

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			if err := worldService.Stop(stopCtx); err != nil {
				log.Printf("Ошибка сохранения миров: %v", err)
			}
			grpcServer.GracefulStop()
			if adminServer != nil {
				_ = adminServer.Shutdown(stopCtx)
			}
			if err := store.Close(); err != nil {
				log.Printf("Ошибка закрытия хранилища: %v", err)
			}
			close(stopped)
		})
	}

	// Обрабатываем сигналы для корректного завершения
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Println("Получен сигнал завершения")
		shutdown()
	}()

	// CLI для администратора: встроенные команды
	cmds := admin.NewCommands()
	admin.RegisterCore(cmds, admin.Core{Pool: pool, Players: worldService, Stop: func() { go shutdown() }})
	cmds.Register("config", "Показать текущую конфигурацию", func(context.Context, []string) (string, error) {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return "", err
		}
		return string(out), nil
	})
	if *console {
		go func() {
			if err := cmds.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Консоль: %v", err)
			}
		}()
	}

	log.Printf("gRPC сервер запущен на %s", cfg.Listen)
	if err := grpcServer.Serve(lis); err != nil {
		log.Fatalf("Ошибка сервера: %v", err)
	}
	<-stopped
	log.Println("Сервер остановлен")
}

// applyFlags переносит явно заданные флаги в конфигурацию
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "admin":
			cfg.AdminListen = *adminAddr
		case "storage":
			cfg.Storage.Driver = *driver
		case "path":
			cfg.Storage.Path = *storePath
		case "seed":
			cfg.World.Seed = *seed
		}
	})
}

func loadItems(path string) (item.Catalog, error) {
	if path == "" {
		return item.Default(), nil
	}
	return item.LoadYAML(path)
}

func openStore(sc config.Storage, logger *zap.SugaredLogger) (storage.SnapshotStore, error) {
	switch sc.Driver {
	case config.DriverSQLite:
		return storage.OpenSQLite(sc.Path, logger.Named("sqlite"))
	case config.DriverFile:
		return storage.NewFileStore(sc.Path, logger.Named("files"))
	}
	return nil, fmt.Errorf("неизвестный драйвер %q", sc.Driver)
}

// generate создает новые миры; сид мира зависит от общего сида и имени
func generate(wc config.World, items item.Catalog) worldpool.GenerateFunc {
	return func(name string) (*world.World, error) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(name))
		return generator.Generate(name, generator.Options{
			Width:  wc.Width,
			Height: wc.Height,
			Seed:   wc.Seed ^ int64(h.Sum64()),
		}, items)
	}
}
