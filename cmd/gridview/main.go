package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	termbox "github.com/nsf/termbox-go"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
)

var (
	storeKind = flag.String("storage", "file", "Хранилище миров: file или sqlite")
	storePath = flag.String("path", "data/worlds", "Каталог или файл хранилища")
	worldName = flag.String("world", "START", "Имя мира")
	itemsFile = flag.String("items", "", "Каталог предметов (YAML); пусто - встроенный")
)

func main() {
	flag.Parse()

	w, err := loadWorld(context.Background())
	if err != nil {
		log.Fatalf("Не удалось загрузить мир: %v", err)
	}

	// Инициализируем termbox
	if err := termbox.Init(); err != nil {
		log.Fatalf("termbox init error: %v", err)
	}
	defer termbox.Close()

	// Позиция камеры (в клетках) и курсора (на экране)
	camX, camY := 0, 0
	curX, curY := 0, 2
	const top = 2 // две строки заголовка

	draw := func() {
		termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
		width, height := termbox.Size()

		for py := top; py < height; py++ {
			for px := 0; px < width; px++ {
				t, ok := w.Get(camX+px, camY+py-top)
				if !ok {
					continue
				}
				ch, fg, bg := tileSymbol(w, t)
				termbox.SetCell(px, py, ch, fg, bg)
			}
		}

		// Выделяем курсор (инвертируем цвета)
		if curX < width && curY < height {
			cell := termbox.CellBuffer()[curY*width+curX]
			termbox.SetCell(curX, curY, cell.Ch, cell.Bg|termbox.AttrBold, cell.Fg)
		}

		header := fmt.Sprintf("%s %dx%d владелец=%d погода=%d объектов=%d  Cam=(%d,%d)",
			w.Name, w.Width, w.Height, w.Owner, w.Weather, len(w.Objects()), camX, camY)
		printLine(0, header, termbox.ColorYellow|termbox.AttrBold, width)
		printLine(1, describe(w, camX+curX, camY+curY-top), termbox.ColorWhite, width)
		termbox.Flush()
	}

	draw()

	// Основной цикл
	for {
		switch ev := termbox.PollEvent(); ev.Type {
		case termbox.EventKey:
			width, height := termbox.Size()
			switch ev.Key {
			case termbox.KeyEsc, termbox.KeyCtrlC:
				return
			case termbox.KeyArrowLeft:
				camX = max(camX-1, 0)
			case termbox.KeyArrowRight:
				camX = min(camX+1, max(w.Width-1, 0))
			case termbox.KeyArrowUp:
				camY = max(camY-1, 0)
			case termbox.KeyArrowDown:
				camY = min(camY+1, max(w.Height-1, 0))
			default:
				switch ev.Ch {
				case 'q':
					return
				// WASD для курсора
				case 'a':
					curX = max(curX-1, 0)
				case 'd':
					curX = min(curX+1, width-1)
				case 'w':
					curY = max(curY-1, top)
				case 's':
					curY = min(curY+1, height-1)
				}
			}
			draw()
		case termbox.EventError:
			log.Printf("termbox error: %v", ev.Err)
			return
		case termbox.EventResize:
			draw()
		}
	}
}

func printLine(y int, s string, fg termbox.Attribute, width int) {
	x := 0
	for _, r := range s {
		if x >= width {
			break
		}
		termbox.SetCell(x, y, r, fg, termbox.ColorBlack)
		x++
	}
}

func loadWorld(ctx context.Context) (*world.World, error) {
	items := item.Catalog(item.Default())
	if *itemsFile != "" {
		reg, err := item.LoadYAML(*itemsFile)
		if err != nil {
			return nil, err
		}
		items = reg
	}

	var (
		store storage.SnapshotStore
		err   error
	)
	switch *storeKind {
	case "sqlite":
		store, err = storage.OpenSQLite(*storePath, nil)
	case "file":
		store, err = storage.NewFileStore(*storePath, nil)
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", *storeKind)
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()

	name, err := storage.NormalizeName(*worldName)
	if err != nil {
		return nil, err
	}
	raw, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return world.Restore(raw, items)
}
