package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/annelo/go-tile-server/internal/actor"
	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/metrics"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/tile"
	"github.com/annelo/go-tile-server/internal/world"
	"github.com/annelo/go-tile-server/internal/worldpool"
)

// Join обрабатывает вход игрока в мир
func (s *WorldService) Join(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	join, err := packet.DecodeJoin(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "неверный пакет входа: %v", err)
	}
	if join.User <= 0 {
		return nil, status.Error(codes.InvalidArgument, "не указан id игрока")
	}

	sess := actor.New(join.User, join.Name, s.roleOf(join.User), s.queueSize)
	if err := s.sessions.Add(sess); err != nil {
		if errors.Is(err, actor.ErrDuplicate) {
			return nil, status.Errorf(codes.AlreadyExists, "игрок %d уже подключен", join.User)
		}
		return nil, status.Errorf(codes.Internal, "регистрация сессии: %v", err)
	}

	h, payload, err := s.pool.Join(ctx, join.World, sess)
	if err != nil {
		_, _ = s.sessions.Remove(sess.ID)
		s.logger.Warnw("не удалось войти в мир", "user", join.User, "world", join.World, "error", err)
		return nil, toStatus(err)
	}
	sess.SetWorld(h.Name(), 0, 0)
	metrics.PlayersConnected.Add(1)
	sess.Send(payload)

	err = h.Update(func(w *world.World) error {
		x, y := spawnPoint(w)
		sess.SetWorld(h.Name(), x, y)
		w.SendAll(packet.ActorMove(sess.User, x, y))
		return nil
	})
	if err != nil {
		s.disconnect(ctx, sess)
		return nil, toStatus(err)
	}

	s.logger.Infow("игрок подключился", "session", sess.ID, "user", sess.User, "name", sess.Name, "world", h.Name())
	return wrapperspb.String(sess.ID), nil
}

// Act выполняет действие игрока с клеткой. Отказы в доступе и недопустимые
// перемещения не считаются ошибками: игрок получает уведомление.
func (s *WorldService) Act(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	sess, err := s.sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	action, err := packet.DecodeAction(req.GetValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "неверный пакет действия: %v", err)
	}

	h, ok := s.pool.Loaded(sess.World())
	if !ok {
		return nil, status.Error(codes.FailedPrecondition, "игрок не находится в мире")
	}

	err = h.Update(func(w *world.World) error {
		err := s.dispatch(w, sess, action)
		if text, ok := noticeFor(err); ok {
			sess.Send(packet.Notice(action.X, action.Y, text))
			return nil
		}
		return err
	})
	if err != nil {
		s.logger.Debugw("действие отклонено", "user", sess.User, "intent", action.Intent, "x", action.X, "y", action.Y, "error", err)
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Events отдает исходящие пакеты сессии, пока сессия жива. Обрыв потока
// клиентом отключает игрока.
func (s *WorldService) Events(req *wrapperspb.StringValue, stream WorldEventsServer) error {
	sess, err := s.sessions.Get(req.GetValue())
	if err != nil {
		return status.Error(codes.NotFound, "сессия не найдена")
	}

	ctx := stream.Context()
	for {
		payload, err := sess.Next(ctx)
		if errors.Is(err, actor.ErrSessionClosed) {
			return nil
		}
		if err != nil {
			s.logger.Infow("поток событий прерван", "user", sess.User, "error", err)
			s.disconnect(context.Background(), sess)
			return nil
		}
		if err := stream.Send(wrapperspb.Bytes(payload)); err != nil {
			s.logger.Warnw("ошибка отправки", "user", sess.User, "error", err)
			s.disconnect(context.Background(), sess)
			return err
		}
	}
}

// Leave отключает игрока
func (s *WorldService) Leave(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	sess, err := s.sessions.Get(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.NotFound, "сессия не найдена")
	}
	s.disconnect(ctx, sess)
	return &emptypb.Empty{}, nil
}

// Kick отключает игрока по id, отправив ему уведомление
func (s *WorldService) Kick(ctx context.Context, user int32, reason string) error {
	sess, err := s.sessions.ByUser(user)
	if err != nil {
		return err
	}
	x, y := sess.Position()
	sess.Send(packet.Notice(x, y, reason))
	s.disconnect(ctx, sess)
	return nil
}

// disconnect убирает сессию из реестра и мира. Повторный вызов ничего не делает.
func (s *WorldService) disconnect(ctx context.Context, sess *actor.Session) {
	if _, err := s.sessions.Remove(sess.ID); err != nil {
		return
	}
	defer sess.Close()

	name := sess.World()
	if name == "" {
		return
	}
	if err := s.pool.Leave(ctx, name, sess.User); err != nil && !errors.Is(err, worldpool.ErrNotLoaded) {
		s.logger.Errorw("ошибка выхода из мира", "user", sess.User, "world", name, "error", err)
	}
	metrics.PlayersConnected.Add(-1)
	s.logger.Infow("игрок отключился", "session", sess.ID, "user", sess.User, "world", name)
}

func (s *WorldService) sessionFromContext(ctx context.Context) (*actor.Session, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "нет метаданных сессии")
	}
	ids := md.Get(SessionHeader)
	if len(ids) == 0 {
		return nil, status.Error(codes.Unauthenticated, "не указана сессия")
	}
	sess, err := s.sessions.Get(ids[0])
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "сессия не найдена")
	}
	return sess, nil
}

// spawnPoint - клетка главной двери или центр верхнего ряда
func spawnPoint(w *world.World) (int, int) {
	x, y, found := 0, 0, false
	w.Each(func(index int, t *tile.Tile) {
		if !found && t.Foreground == item.MainDoor {
			x, y, found = t.X, t.Y, true
		}
	})
	if !found {
		return w.Width / 2, 0
	}
	return x, y
}
