package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/annelo/go-tile-server/internal/metrics"
)

// fileExt - расширение файла снимка
const fileExt = ".wld.zst"

// saveQueueSize - емкость очереди фонового сохранения
const saveQueueSize = 64

// FileStore хранит каждый мир в отдельном файле, сжатом zstd. Фоновое
// сохранение (SaveAsync) выполняет отдельный рабочий.
type FileStore struct {
	dir string
	log *zap.SugaredLogger

	enc *zstd.Encoder
	dec *zstd.Decoder

	// Снимки, ожидающие фонового сохранения
	pending map[string][]byte
	mu      sync.Mutex
	// writeMu упорядочивает записи файлов
	writeMu sync.Mutex

	saveQueue chan string

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewFileStore создает хранилище в каталоге dir
func NewFileStore(dir string, logger *zap.SugaredLogger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	s := &FileStore{
		dir:       dir,
		log:       logger,
		enc:       enc,
		dec:       dec,
		pending:   make(map[string][]byte),
		saveQueue: make(chan string, saveQueueSize),
		stopChan:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.saveWorker()

	return s, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save сразу записывает снимок на диск
func (s *FileStore) Save(ctx context.Context, name string, snapshot []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Синхронное сохранение делает отложенный снимок устаревшим
	s.mu.Lock()
	delete(s.pending, name)
	s.mu.Unlock()

	return s.write(name, snapshot)
}

// SaveAsync ставит снимок в очередь фонового сохранения. Более поздний
// снимок того же мира заменяет еще не записанный.
func (s *FileStore) SaveAsync(name string, snapshot []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending[name] = append([]byte(nil), snapshot...)
	s.mu.Unlock()

	select {
	case s.saveQueue <- name:
	default:
		// Очередь заполнена: снимок останется в pending до Close
		s.log.Warnw("очередь сохранения заполнена", "world", name)
	}
	return nil
}

// Load читает снимок, учитывая еще не записанные
func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, ok := s.pending[name]
	s.mu.Unlock()
	if ok {
		return append([]byte(nil), data...), nil
	}

	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение снимка %s: %w", name, err)
	}

	out, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("распаковка снимка %s: %w", name, err)
	}
	return out, nil
}

// List возвращает имена миров на диске и в очереди
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("чтение директории хранилища: %w", err)
	}

	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		seen[strings.TrimSuffix(e.Name(), fileExt)] = struct{}{}
	}
	s.mu.Lock()
	for name := range s.pending {
		seen[name] = struct{}{}
	}
	s.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close останавливает рабочего и записывает все отложенные снимки
func (s *FileStore) Close() error {
	var retErr error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		// Сигнализируем рабочему остановиться
		close(s.stopChan)
		s.wg.Wait()

		retErr = s.flushPending()

		s.enc.Close()
		s.dec.Close()
	})
	return retErr
}

// saveWorker обрабатывает очередь сохранения
func (s *FileStore) saveWorker() {
	defer s.wg.Done()
	for {
		select {
		case name := <-s.saveQueue:
			s.savePending(name)
		case <-s.stopChan:
			return
		}
	}
}

// savePending записывает отложенный снимок мира, если он еще есть
func (s *FileStore) savePending(name string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	data, ok := s.pending[name]
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := s.write(name, data); err != nil {
		s.log.Errorw("ошибка фонового сохранения", "world", name, "error", err)
		return
	}

	// Снимок мог смениться, пока шла запись: удаляем только записанный
	s.mu.Lock()
	if cur, ok := s.pending[name]; ok && sameSlice(cur, data) {
		delete(s.pending, name)
	}
	s.mu.Unlock()
}

func sameSlice(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func (s *FileStore) flushPending() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string][]byte)
	s.mu.Unlock()

	var errs []error
	for name, data := range pending {
		if err := s.write(name, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// write сжимает снимок и атомарно заменяет файл
func (s *FileStore) write(name string, snapshot []byte) error {
	compressed := s.enc.EncodeAll(snapshot, make([]byte, 0, len(snapshot)/2))

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("запись снимка %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("запись снимка %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("замена снимка %s: %w", name, err)
	}

	metrics.SnapshotsSaved.Add(1)
	s.log.Debugw("снимок сохранен", "world", name, "bytes", len(snapshot), "compressed", len(compressed))
	return nil
}
