// Package storage сохраняет бинарные снимки миров: в сжатые файлы или в SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SnapshotStore - хранилище снимков миров по имени
type SnapshotStore interface {
	// Save сохраняет снимок мира, заменяя предыдущий
	Save(ctx context.Context, name string, snapshot []byte) error

	// Load загружает снимок. Возвращает ErrSnapshotNotFound, если мира нет
	Load(ctx context.Context, name string) ([]byte, error)

	// List возвращает имена сохраненных миров по алфавиту
	List(ctx context.Context) ([]string, error)

	// Close завершает фоновую работу и освобождает ресурсы
	Close() error
}

var (
	ErrSnapshotNotFound = errors.New("снимок мира не найден")
	ErrBadName          = errors.New("недопустимое имя мира")
	ErrClosed           = errors.New("хранилище закрыто")
)

// MaxNameLength - предел длины имени мира
const MaxNameLength = 24

// NormalizeName приводит имя мира к верхнему регистру и проверяет его:
// только латинские буквы и цифры
func NormalizeName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}
	return name, nil
}
