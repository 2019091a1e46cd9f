package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/lock"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New("ACCESS", 40, 30, item.Default())
	require.NoError(t, err)
	return w
}

func TestSession_EditAccessUnownedWorld(t *testing.T) {
	w := newWorld(t)
	s := New(1, "alice", RolePlayer, 0)

	assert.True(t, s.HasEditAccess(w, 3, 3, item.Dirt))
	assert.False(t, s.HasEditAccess(w, 40, 3, item.Dirt), "вне мира")
	assert.False(t, s.IsOwner(w))
	assert.False(t, s.CanNoClip())
}

func TestSession_EditAccessWorldLock(t *testing.T) {
	w := newWorld(t)
	owner := New(1, "owner", RolePlayer, 0)
	guest := New(2, "guest", RolePlayer, 0)

	_, err := w.Place(owner, 5, 5, item.WorldLock)
	require.NoError(t, err)
	require.True(t, owner.IsOwner(w))

	assert.True(t, owner.HasEditAccess(w, 20, 20, item.Dirt))
	assert.False(t, guest.HasEditAccess(w, 20, 20, item.Dirt))

	_, l, ok := w.LockAt(w.MainLock)
	require.True(t, ok)
	l.Access.Add(guest.User)
	assert.True(t, guest.HasEditAccess(w, 20, 20, item.Dirt))

	l.Access.Remove(guest.User)
	w.Flags |= world.FlagPublic
	assert.True(t, guest.HasEditAccess(w, 20, 20, item.Dirt))

	mod := New(3, "mod", RoleModerator, 0)
	w.Flags &^= world.FlagPublic
	assert.True(t, mod.HasEditAccess(w, 20, 20, item.Dirt))
	assert.True(t, mod.CanNoClip())
}

func TestSession_EditAccessLockRegion(t *testing.T) {
	w := newWorld(t)
	owner := New(1, "owner", RolePlayer, 0)
	guest := New(2, "guest", RolePlayer, 0)

	claim, err := lock.Apply(w, owner, 10, 10, item.SmallLock)
	require.NoError(t, err)
	cx, cy := w.Coords(claim.Cells[0])

	assert.True(t, owner.HasEditAccess(w, cx, cy, item.Dirt))
	assert.True(t, owner.HasEditAccess(w, 10, 10, item.Dirt), "сама клетка замка")
	assert.False(t, guest.HasEditAccess(w, cx, cy, item.Dirt))
	assert.True(t, guest.HasEditAccess(w, 30, 25, item.Dirt), "вне области")

	added, err := lock.AddAccess(w, w.Index(10, 10), guest.User)
	require.NoError(t, err)
	require.True(t, added)
	assert.True(t, guest.HasEditAccess(w, cx, cy, item.Dirt))

	_, err = lock.RemoveAccess(w, w.Index(10, 10), guest.User)
	require.NoError(t, err)
	cell, _ := w.Get(cx, cy)
	cell.Set(tile.FlagPublic)
	assert.True(t, guest.HasEditAccess(w, cx, cy, item.Dirt))
}

func TestSession_PriorityQueues(t *testing.T) {
	s := New(1, "alice", RolePlayer, 4)
	ctx := context.Background()

	tileUpdate := []byte{byte(packet.KindTileUpdate), 1}
	notice := packet.Notice(1, 2, "нет доступа")
	s.Send(tileUpdate)
	s.Send(notice)

	first, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, notice, first)

	second, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, tileUpdate, second)
}

func TestSession_DropsOnOverflow(t *testing.T) {
	s := New(1, "alice", RolePlayer, 2)
	for i := 0; i < 5; i++ {
		s.Send([]byte{byte(packet.KindTileUpdate)})
	}
	assert.Equal(t, int64(3), s.Dropped())
}

func TestSession_CloseUnblocksNext(t *testing.T) {
	s := New(1, "alice", RolePlayer, 2)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errc <- err
	}()

	s.Close()
	s.Close()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("Next не завершился после Close")
	}

	// После закрытия пакеты не принимаются
	s.Send([]byte{1})
	assert.Zero(t, s.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(2, "bob", RolePlayer, 1).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_Position(t *testing.T) {
	s := New(1, "alice", RolePlayer, 0)
	s.SetWorld("START", 3, 4)
	assert.Equal(t, "START", s.World())
	s.MoveTo(5, 6)
	x, y := s.Position()
	assert.Equal(t, 5, x)
	assert.Equal(t, 6, y)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := New(2, "alice", RolePlayer, 0)
	b := New(1, "bob", RolePlayer, 0)

	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))
	assert.ErrorIs(t, r.Add(New(2, "alice again", RolePlayer, 0)), ErrDuplicate)
	assert.Equal(t, 2, r.Len())

	got, err := r.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = r.ByUser(1)
	require.NoError(t, err)
	assert.Same(t, b, got)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, int32(1), all[0].User)

	_, err = r.Remove(a.ID)
	require.NoError(t, err)
	_, err = r.Remove(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.ByUser(2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotEqual(t, a.ID, b.ID)
}
