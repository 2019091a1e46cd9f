package service

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/circuit"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/lock"
	"github.com/annelo/go-tile-server/internal/metrics"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/pathfind"
	"github.com/annelo/go-tile-server/internal/storage"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

var (
	errUnknownIntent  = errors.New("неизвестное действие")
	errNotActivatable = errors.New("клетку нельзя активировать")
)

// dispatch выполняет действие под захваченным мьютексом мира
func (s *WorldService) dispatch(w *world.World, sess *actor.Session, req packet.ActionRequest) error {
	switch req.Intent {
	case packet.IntentPlace:
		return s.place(w, sess, req.X, req.Y, req.Item)
	case packet.IntentPunch:
		return s.punch(w, sess, req.X, req.Y)
	case packet.IntentActivate:
		return s.activate(w, sess, req.X, req.Y)
	case packet.IntentMove:
		return s.move(w, sess, req.X, req.Y)
	default:
		return fmt.Errorf("%w: %d", errUnknownIntent, req.Intent)
	}
}

func (s *WorldService) place(w *world.World, sess *actor.Session, x, y int, id uint16) error {
	if w.KindOf(id) == item.KindLock {
		claim, err := lock.Apply(w, sess, x, y, id)
		if err != nil {
			return err
		}
		w.SendAll(w.TileUpdate(x, y))
		w.SendAll(claim.Payload())
		return nil
	}

	payload, err := w.Place(sess, x, y, id)
	if err != nil {
		return err
	}
	w.SendAll(payload)
	return nil
}

func (s *WorldService) punch(w *world.World, sess *actor.Session, x, y int) error {
	// Область замка запоминается до удара: поломка замка ее освобождает
	var region []int
	if t, ok := w.Get(x, y); ok && w.KindOf(t.Foreground) == item.KindLock {
		region = claimedBy(w, w.Index(x, y))
	}

	payload, broken, err := w.Punch(sess, x, y)
	if err != nil || !broken {
		return err
	}
	w.SendAll(payload)
	if len(region) > 0 {
		w.SendAll(w.TileBatch(region))
	}
	return nil
}

func (s *WorldService) activate(w *world.World, sess *actor.Session, x, y int) error {
	t, ok := w.Get(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
	}

	switch w.KindOf(t.Foreground) {
	case item.KindVent:
		pulse, err := circuit.Fire(w, x, y, s.rnd)
		if err != nil {
			return err
		}
		metrics.PulsesFired.Add(1)
		w.SendAll(pulse.Payload())
		if len(pulse.Toggled) > 0 {
			w.SendAll(w.TileBatch(pulse.Toggled))
		}
		return nil

	case item.KindLock:
		index := w.Index(x, y)
		l, _ := t.LockData()
		if l == nil || (l.Owner != sess.User && !sess.CanNoClip()) {
			return fmt.Errorf("%w: замок (%d,%d)", world.ErrPermissionDenied, x, y)
		}
		before := claimedBy(w, index)
		claim, err := lock.Reapply(w, index)
		if err != nil {
			return err
		}
		w.SendAll(claim.Payload())
		if changed := union(before, claim.Cells); len(changed) > 0 {
			w.SendAll(w.TileBatch(changed))
		}
		return nil
	}
	return fmt.Errorf("%w: (%d,%d)", errNotActivatable, x, y)
}

func (s *WorldService) move(w *world.World, sess *actor.Session, x, y int) error {
	if !w.InBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", world.ErrOutOfBounds, x, y)
	}
	fx, fy := sess.Position()
	from := pathfind.Point{X: fx, Y: fy}
	to := pathfind.Point{X: x, Y: y}
	if err := s.validator.Check(w, sess, from, to); err != nil {
		return err
	}
	sess.MoveTo(x, y)
	w.SendAll(packet.ActorMove(sess.User, x, y))
	return nil
}

// claimedBy возвращает индексы клеток области замка lockIndex
func claimedBy(w *world.World, lockIndex int) []int {
	if lockIndex == 0 {
		return nil
	}
	var cells []int
	w.Each(func(index int, t *tile.Tile) {
		if t.Parent == lockIndex && t.Has(tile.FlagLocked) {
			cells = append(cells, index)
		}
	})
	return cells
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, i := range list {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	return out
}

// noticeFor возвращает текст уведомления для отказов, которые игрок видит
// только как сообщение
func noticeFor(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, world.ErrPermissionDenied):
		return "Нет доступа", true
	case errors.Is(err, world.ErrOccupied):
		return "Клетка занята", true
	case errors.Is(err, lock.ErrSearchExhausted):
		return "Замку не хватает места", true
	case errors.Is(err, pathfind.ErrTooFar):
		return "Слишком далеко", true
	case errors.Is(err, pathfind.ErrUnreachable):
		return "Туда не пройти", true
	case errors.Is(err, errNotActivatable):
		return "Здесь нечего активировать", true
	}
	return "", false
}

// toStatus переводит ошибки домена в коды gRPC
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, world.ErrOutOfBounds),
		errors.Is(err, world.ErrUnknownContent),
		errors.Is(err, lock.ErrNotALock),
		errors.Is(err, storage.ErrBadName),
		errors.Is(err, errUnknownIntent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, worldpool.ErrUnloaded), errors.Is(err, worldpool.ErrNotLoaded):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
