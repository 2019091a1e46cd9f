package service

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/lock"
	"github.com/annelo/go-tile-server/internal/metrics"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

const (
	doorX, doorY = 5, 10
)

type harness struct {
	svc    *WorldService
	client *Client
	store  *storage.FileStore
}

// flatWorld - пустой мир 40x20 с главной дверью в (5,10)
func flatWorld(name string) (*world.World, error) {
	w, err := world.New(name, 40, 20, item.Default())
	if err != nil {
		return nil, err
	}
	builder := actor.New(999, "builder", actor.RoleModerator, 1)
	if _, err := w.Place(builder, doorX, doorY, item.MainDoor); err != nil {
		return nil, err
	}
	return w, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()

	store, err := storage.NewFileStore(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pool := worldpool.New(worldpool.Options{
		Items:    item.Default(),
		Store:    store,
		Generate: flatWorld,
		Logger:   log,
	})
	svc := NewWorldService(Options{Pool: pool, Logger: log, QueueSize: 64, Moderators: []int32{42}})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterWorldServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{svc: svc, client: NewClient(conn), store: store}
}

// join входит в мир и открывает поток событий
func (h *harness) join(t *testing.T, user int32, worldName string) (string, *EventStream) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	id, err := h.client.Join(ctx, packet.JoinRequest{User: user, World: worldName, Name: "p"}.Encode())
	require.NoError(t, err)
	stream, err := h.client.Events(ctx, id)
	require.NoError(t, err)
	return id, stream
}

func (h *harness) act(t *testing.T, session string, req packet.ActionRequest) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.client.Act(ctx, session, req.Encode())
}

// recvKind читает поток до первого пакета нужного типа
func recvKind(t *testing.T, stream *EventStream, kind packet.Kind) []byte {
	t.Helper()
	for {
		p, err := stream.Recv()
		require.NoError(t, err, "ожидался пакет %s", kind)
		require.NotEmpty(t, p)
		if packet.Kind(p[0]) == kind {
			return p
		}
	}
}

func noticeText(t *testing.T, p []byte) string {
	t.Helper()
	kind, r, err := packet.Open(p)
	require.NoError(t, err)
	require.Equal(t, packet.KindNotice, kind)
	r.U16()
	r.U16()
	return r.Str()
}

func TestJoin_SnapshotThenSpawn(t *testing.T) {
	h := newHarness(t)
	_, stream := h.join(t, 1, "start")

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, byte(packet.KindWorldSnapshot), first[0])

	move := recvKind(t, stream, packet.KindActorMove)
	assert.Equal(t, packet.ActorMove(1, doorX, doorY), move)

	sess, err := h.svc.Sessions().ByUser(1)
	require.NoError(t, err)
	assert.Equal(t, "START", sess.World())
}

func TestJoin_Rejections(t *testing.T) {
	h := newHarness(t)
	h.join(t, 1, "START")
	ctx := context.Background()

	_, err := h.client.Join(ctx, packet.JoinRequest{User: 1, World: "START"}.Encode())
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = h.client.Join(ctx, packet.JoinRequest{User: 0, World: "START"}.Encode())
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Join(ctx, packet.JoinRequest{User: 2, World: "no such"}.Encode())
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = h.svc.Sessions().ByUser(2)
	assert.ErrorIs(t, err, actor.ErrNotFound, "неудачный вход не оставляет сессию")

	_, err = h.client.Join(ctx, []byte{byte(packet.KindAction)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAct_RequiresSession(t *testing.T) {
	h := newHarness(t)
	err := h.act(t, "unknown", packet.ActionRequest{Intent: packet.IntentPlace, X: 1, Y: 1, Item: item.Dirt})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAct_PlaceBroadcasts(t *testing.T) {
	h := newHarness(t)
	a, streamA := h.join(t, 1, "BUILD")
	_, streamB := h.join(t, 2, "BUILD")

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 3, Y: 3, Item: item.Dirt}))

	for _, stream := range []*EventStream{streamA, streamB} {
		upd := recvKind(t, stream, packet.KindTileUpdate)
		kind, r, err := packet.Open(upd)
		require.NoError(t, err)
		assert.Equal(t, packet.KindTileUpdate, kind)
		assert.Positive(t, r.Remaining())
	}

	err := h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 99, Y: 3, Item: item.Dirt})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 4, Y: 3, Item: 60000})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.act(t, a, packet.ActionRequest{Intent: 77, X: 4, Y: 3})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAct_PermissionDeniedIsNotice(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.join(t, 1, "OWNED")
	guest, guestStream := h.join(t, 2, "OWNED")

	require.NoError(t, h.act(t, owner, packet.ActionRequest{Intent: packet.IntentPlace, X: 2, Y: 2, Item: item.WorldLock}))
	require.NoError(t, h.act(t, guest, packet.ActionRequest{Intent: packet.IntentPlace, X: 3, Y: 3, Item: item.Dirt}))

	notice := recvKind(t, guestStream, packet.KindNotice)
	assert.Equal(t, "Нет доступа", noticeText(t, notice))

	hd, ok := h.svc.pool.Loaded("OWNED")
	require.True(t, ok)
	require.NoError(t, hd.View(func(w *world.World) error {
		tl, _ := w.Get(3, 3)
		assert.Zero(t, tl.Foreground, "отказ не меняет мир")
		assert.Equal(t, int32(1), w.Owner)
		return nil
	}))
}

func TestAct_LockClaimAndRelease(t *testing.T) {
	h := newHarness(t)
	a, stream := h.join(t, 1, "LOCKS")

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 20, Y: 5, Item: item.SmallLock}))
	raw := recvKind(t, stream, packet.KindLockClaim)
	claim, err := lock.DecodeClaim(raw)
	require.NoError(t, err)
	assert.Len(t, claim.Cells, lock.Quota(item.TierSmall)-1)

	// Переоценка владельцем отправляет заявку заново
	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentActivate, X: 20, Y: 5}))
	again, err := lock.DecodeClaim(recvKind(t, stream, packet.KindLockClaim))
	require.NoError(t, err)
	assert.Len(t, again.Cells, len(claim.Cells))

	// Поломка замка освобождает область
	for i := 0; i < 4; i++ {
		require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPunch, X: 20, Y: 5}))
	}
	recvKind(t, stream, packet.KindTileUpdate)
	recvKind(t, stream, packet.KindTileBatch)

	hd, _ := h.svc.pool.Loaded("LOCKS")
	require.NoError(t, hd.View(func(w *world.World) error {
		for _, c := range claim.Cells {
			tl, _ := w.At(c)
			assert.Zero(t, tl.Parent)
		}
		return nil
	}))
}

func TestAct_LockReapplyByStrangerDenied(t *testing.T) {
	h := newHarness(t)
	a, _ := h.join(t, 1, "LOCKS")
	b, streamB := h.join(t, 2, "LOCKS")

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 20, Y: 5, Item: item.SmallLock}))
	require.NoError(t, h.act(t, b, packet.ActionRequest{Intent: packet.IntentActivate, X: 20, Y: 5}))
	assert.Equal(t, "Нет доступа", noticeText(t, recvKind(t, streamB, packet.KindNotice)))

	require.NoError(t, h.act(t, b, packet.ActionRequest{Intent: packet.IntentActivate, X: 30, Y: 5}))
	assert.Equal(t, "Здесь нечего активировать", noticeText(t, recvKind(t, streamB, packet.KindNotice)))
}

func TestAct_VentFiresPulse(t *testing.T) {
	h := newHarness(t)
	a, stream := h.join(t, 1, "PIPES")
	before := metrics.PulsesFired.Value()

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 10, Y: 15, Item: item.Vent}))
	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentActivate, X: 10, Y: 15}))

	raw := recvKind(t, stream, packet.KindCircuitPulse)
	kind, r, err := packet.Open(raw)
	require.NoError(t, err)
	assert.Equal(t, packet.KindCircuitPulse, kind)
	assert.Equal(t, uint16(1), r.U16(), "импульс уходит в пустую клетку справа")
	assert.Equal(t, before+1, metrics.PulsesFired.Value())
}

func TestAct_MoveValidation(t *testing.T) {
	h := newHarness(t)
	a, stream := h.join(t, 1, "WALK")
	recvKind(t, stream, packet.KindActorMove)

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentMove, X: doorX + 3, Y: doorY}))
	assert.Equal(t, packet.ActorMove(1, doorX+3, doorY), recvKind(t, stream, packet.KindActorMove))

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentMove, X: 35, Y: doorY}))
	assert.Equal(t, "Слишком далеко", noticeText(t, recvKind(t, stream, packet.KindNotice)))

	sess, err := h.svc.Sessions().ByUser(1)
	require.NoError(t, err)
	x, y := sess.Position()
	assert.Equal(t, doorX+3, x)
	assert.Equal(t, doorY, y)
}

func TestAct_ModeratorMovesAnywhere(t *testing.T) {
	h := newHarness(t)
	m, stream := h.join(t, 42, "WALK")

	require.NoError(t, h.act(t, m, packet.ActionRequest{Intent: packet.IntentMove, X: 35, Y: 1}))
	assert.Equal(t, packet.ActorMove(42, 35, 1), recvKind(t, stream, packet.KindActorMove))
}

func TestLeave_PersistsAndUnloads(t *testing.T) {
	h := newHarness(t)
	a, stream := h.join(t, 1, "SAVEME")
	before := metrics.PlayersConnected.Value()

	require.NoError(t, h.act(t, a, packet.ActionRequest{Intent: packet.IntentPlace, X: 3, Y: 3, Item: item.Dirt}))
	require.NoError(t, h.client.Leave(context.Background(), a))

	for {
		_, err := stream.Recv()
		if err != nil {
			assert.True(t, errors.Is(err, io.EOF), "поток закрывается без ошибки: %v", err)
			break
		}
	}
	assert.Equal(t, before-1, metrics.PlayersConnected.Value())
	assert.Zero(t, h.svc.pool.Len())

	raw, err := h.store.Load(context.Background(), "SAVEME")
	require.NoError(t, err)
	w, err := world.Restore(raw, item.Default())
	require.NoError(t, err)
	tl, _ := w.Get(3, 3)
	assert.Equal(t, item.Dirt, tl.Foreground)

	err = h.client.Leave(context.Background(), a)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStop_NotifiesAndSaves(t *testing.T) {
	h := newHarness(t)
	_, stream := h.join(t, 1, "LAST")

	require.NoError(t, h.svc.Stop(context.Background()))
	assert.Equal(t, ShutdownNotice, noticeText(t, recvKind(t, stream, packet.KindNotice)))
	assert.Zero(t, h.svc.Sessions().Len())

	names, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "LAST")

	// Повторная остановка безопасна
	require.NoError(t, h.svc.Stop(context.Background()))
}
