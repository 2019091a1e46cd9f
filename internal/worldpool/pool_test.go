package worldpool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/annelo/go-tile-server/internal/generator"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
)

type member struct{ id int32 }

func (m member) UserID() int32                                     { return m.id }
func (m member) IsOwner(w *world.World) bool                       { return w.Owner == m.id }
func (m member) HasEditAccess(*world.World, int, int, uint16) bool { return true }
func (m member) CanNoClip() bool                                   { return false }
func (m member) Send([]byte)                                       {}

type fixture struct {
	pool      *Pool
	store     *storage.FileStore
	mu        sync.Mutex
	generated []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	store, err := storage.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store}
	f.pool = New(Options{
		Items: item.Default(),
		Store: store,
		Generate: func(name string) (*world.World, error) {
			f.mu.Lock()
			f.generated = append(f.generated, name)
			f.mu.Unlock()
			return generator.Generate(name, generator.Options{Width: 30, Height: 20, Seed: 1}, item.Default())
		},
		Logger: log,
	})
	return f
}

func TestPool_GetGeneratesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.pool.Get(ctx, "start")
	require.NoError(t, err)
	b, err := f.pool.Get(ctx, "START")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "START", a.Name())
	assert.Equal(t, []string{"START"}, f.generated)
	assert.Equal(t, []string{"START"}, f.pool.Names())

	_, err = f.pool.Get(ctx, "bad name")
	assert.ErrorIs(t, err, storage.ErrBadName)
}

func TestPool_PersistOnLastLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, payload, err := f.pool.Join(ctx, "HOME", member{1})
	require.NoError(t, err)
	assert.Equal(t, byte(packet.KindWorldSnapshot), payload[0])
	_, _, err = f.pool.Join(ctx, "HOME", member{2})
	require.NoError(t, err)

	require.NoError(t, h.Update(func(w *world.World) error {
		_, err := w.Place(member{1}, 2, 2, item.Dirt)
		return err
	}))

	require.NoError(t, f.pool.Leave(ctx, "HOME", 1))
	assert.Equal(t, 1, f.pool.Len(), "в мире еще есть игрок")

	require.NoError(t, f.pool.Leave(ctx, "HOME", 2))
	assert.Zero(t, f.pool.Len())
	assert.ErrorIs(t, h.View(func(*world.World) error { return nil }), ErrUnloaded)

	// Повторная загрузка берет мир из хранилища, а не генерирует заново
	h2, err := f.pool.Get(ctx, "HOME")
	require.NoError(t, err)
	assert.NotSame(t, h, h2)
	assert.Equal(t, []string{"HOME"}, f.generated)

	require.NoError(t, h2.View(func(w *world.World) error {
		tl, _ := w.Get(2, 2)
		assert.Equal(t, item.Dirt, tl.Foreground)
		assert.False(t, w.Dirty())
		return nil
	}))
}

func TestPool_LeaveUnknownWorld(t *testing.T) {
	f := newFixture(t)
	err := f.pool.Leave(context.Background(), "NOWHERE", 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, f.pool.Save(context.Background(), "NOWHERE"), ErrNotLoaded)
}

func TestPool_SaveDirty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"ONE", "TWO"} {
		_, err := f.pool.Get(ctx, name)
		require.NoError(t, err)
	}
	// Сгенерированные миры грязные
	saved, err := f.pool.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	saved, err = f.pool.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Zero(t, saved)

	h, _ := f.pool.Loaded("ONE")
	require.NoError(t, h.Update(func(w *world.World) error {
		w.MarkDirty()
		return nil
	}))
	saved, err = f.pool.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	info, err := h.Info()
	require.NoError(t, err)
	assert.Equal(t, "ONE", info.Name)
	assert.Equal(t, 30, info.Width)
	assert.False(t, info.Dirty)
}

func TestPool_ConcurrentUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h, err := f.pool.Get(ctx, "BUSY")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Update(func(w *world.World) error {
				w.Drop(item.Dirt, 1, 1.5, 1.5)
				return nil
			})
			_ = h.View(func(w *world.World) error {
				_ = w.Objects()
				return nil
			})
		}()
	}
	wg.Wait()

	info, err := h.Info()
	require.NoError(t, err)
	assert.Equal(t, 50, info.Objects)
}

func TestPool_CloseSavesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pool.Get(ctx, "KEEP")
	require.NoError(t, err)
	require.NoError(t, f.pool.Close(ctx))
	assert.Zero(t, f.pool.Len())

	names, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"KEEP"}, names)
}

func TestPool_NoGenerator(t *testing.T) {
	p := New(Options{Items: item.Default()})
	_, err := p.Get(context.Background(), "MISSING")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)
}
