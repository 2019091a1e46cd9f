package service

import (
	"context"
)

// ShutdownNotice - текст уведомления при остановке сервера
const ShutdownNotice = "Сервер останавливается"

// Stop отключает всех игроков и сохраняет все загруженные миры
func (s *WorldService) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.DisconnectAllClients(ctx)
		err = s.pool.Close(ctx)
	})
	return err
}

// DisconnectAllClients отправляет всем уведомление об остановке и закрывает
// их сессии
func (s *WorldService) DisconnectAllClients(ctx context.Context) {
	sessions := s.sessions.All()
	for _, sess := range sessions {
		if err := s.Kick(ctx, sess.User, ShutdownNotice); err != nil {
			s.logger.Debugw("сессия уже закрыта", "user", sess.User)
		}
	}
	s.logger.Infow("все игроки отключены", "count", len(sessions))
}
