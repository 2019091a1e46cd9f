package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/annelo/go-tile-server/internal/generator"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/storage"
)

var (
	name      = flag.String("world", "START", "Имя мира")
	width     = flag.Int("width", 80, "Ширина мира")
	height    = flag.Int("height", 30, "Высота мира")
	seed      = flag.Int64("seed", 0, "Сид генерации (0 = текущее время)")
	save      = flag.Bool("save", false, "Сохранить мир в хранилище")
	force     = flag.Bool("force", false, "Перезаписать уже сохраненный мир")
	storeKind = flag.String("storage", "file", "Хранилище миров: file или sqlite")
	storePath = flag.String("path", "data/worlds", "Каталог или файл хранилища")
)

func main() {
	flag.Parse()

	// Инициализируем сид текущим временем, если он не задан
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	fmt.Printf("Seed: %d\n", *seed)

	worldName, err := storage.NormalizeName(*name)
	if err != nil {
		log.Fatalf("Имя мира: %v", err)
	}
	w, err := generator.Generate(worldName, generator.Options{Width: *width, Height: *height, Seed: *seed}, item.Default())
	if err != nil {
		log.Fatalf("Ошибка генерации: %v", err)
	}

	fmt.Printf("\nМир %s %dx%d:\n", w.Name, w.Width, w.Height)
	fmt.Print(ascii(w))

	if !*save {
		return
	}
	if err := store(context.Background(), worldName, w.Snapshot()); err != nil {
		log.Printf("Не удалось сохранить мир: %v", err)
		os.Exit(1)
	}
	fmt.Printf("Мир %s сохранен в %s\n", worldName, *storePath)
}

func store(ctx context.Context, worldName string, snapshot []byte) error {
	var (
		s   storage.SnapshotStore
		err error
	)
	switch *storeKind {
	case "sqlite":
		s, err = storage.OpenSQLite(*storePath, nil)
	case "file":
		s, err = storage.NewFileStore(*storePath, nil)
	default:
		return fmt.Errorf("неизвестное хранилище %q", *storeKind)
	}
	if err != nil {
		return err
	}
	defer s.Close()

	if !*force {
		_, err := s.Load(ctx, worldName)
		if err == nil {
			return fmt.Errorf("мир %s уже существует (используйте -force)", worldName)
		}
		if !errors.Is(err, storage.ErrSnapshotNotFound) {
			return err
		}
	}
	return s.Save(ctx, worldName, snapshot)
}
