package packet

import "fmt"

// Kind - тип исходящего или входящего пакета (первый байт)
type Kind uint8

const (
	KindTileUpdate    Kind = 1  // Обновление одной клетки
	KindTileBatch     Kind = 2  // Пакетное обновление клеток
	KindLockClaim     Kind = 3  // Захват области замком
	KindCircuitPulse  Kind = 4  // Импульс по трубам
	KindWorldSnapshot Kind = 5  // Полный снимок мира при входе
	KindObjectUpdate  Kind = 6  // Изменение выпавших предметов
	KindNotice        Kind = 7  // Косметическое уведомление игроку
	KindActorMove     Kind = 8  // Перемещение игрока
	KindAction        Kind = 9  // Входящий запрос действия с клеткой
	KindJoin          Kind = 10 // Входящий запрос входа в мир
	KindWeather       Kind = 11 // Смена погоды в мире
)

func (k Kind) String() string {
	switch k {
	case KindTileUpdate:
		return "tile_update"
	case KindTileBatch:
		return "tile_batch"
	case KindLockClaim:
		return "lock_claim"
	case KindCircuitPulse:
		return "circuit_pulse"
	case KindWorldSnapshot:
		return "world_snapshot"
	case KindObjectUpdate:
		return "object_update"
	case KindNotice:
		return "notice"
	case KindActorMove:
		return "actor_move"
	case KindAction:
		return "action"
	case KindJoin:
		return "join"
	case KindWeather:
		return "weather"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// New создает пакет, начинающийся с байта типа
func New(kind Kind, capacity int) *Writer {
	w := NewWriter(capacity + 1)
	w.U8(uint8(kind))
	return w
}

// Open читает байт типа и возвращает читатель тела пакета
func Open(b []byte) (Kind, *Reader, error) {
	r := NewReader(b)
	kind := Kind(r.U8())
	if err := r.Err(); err != nil {
		return 0, nil, err
	}
	return kind, r, nil
}

// Intent - намерение игрока во входящем запросе
type Intent uint8

const (
	IntentPlace    Intent = 1 // Поставить предмет
	IntentPunch    Intent = 2 // Ударить (ломать)
	IntentActivate Intent = 3 // Активировать устройство
	IntentMove     Intent = 4 // Переместиться на клетку
)

// ActionRequest - входящий запрос "изменить/активировать клетку"
type ActionRequest struct {
	Intent Intent
	X, Y   int
	Item   uint16
}

// Encode собирает пакет запроса
func (a ActionRequest) Encode() []byte {
	w := New(KindAction, 7)
	w.U8(uint8(a.Intent))
	w.U16(uint16(a.X))
	w.U16(uint16(a.Y))
	w.U16(a.Item)
	return w.Bytes()
}

// DecodeAction разбирает пакет запроса действия
func DecodeAction(b []byte) (ActionRequest, error) {
	kind, r, err := Open(b)
	if err != nil {
		return ActionRequest{}, err
	}
	if kind != KindAction {
		return ActionRequest{}, fmt.Errorf("ожидался пакет %s, получен %s", KindAction, kind)
	}
	req := ActionRequest{
		Intent: Intent(r.U8()),
		X:      int(r.U16()),
		Y:      int(r.U16()),
		Item:   r.U16(),
	}
	if err := r.Err(); err != nil {
		return ActionRequest{}, fmt.Errorf("пакет действия: %w", err)
	}
	return req, nil
}

// Notice собирает косметическое уведомление (например, "нет доступа")
func Notice(x, y int, text string) []byte {
	w := New(KindNotice, 6+len(text))
	w.U16(uint16(x))
	w.U16(uint16(y))
	w.Str(text)
	return w.Bytes()
}

// ActorMove собирает пакет перемещения игрока
func ActorMove(user int32, x, y int) []byte {
	w := New(KindActorMove, 8)
	w.I32(user)
	w.U16(uint16(x))
	w.U16(uint16(y))
	return w.Bytes()
}

// Weather собирает пакет смены погоды
func Weather(id uint16) []byte {
	w := New(KindWeather, 2)
	w.U16(id)
	return w.Bytes()
}

// JoinRequest - входящий запрос входа в мир
type JoinRequest struct {
	User  int32
	World string
	Name  string
}

// Encode собирает пакет входа
func (j JoinRequest) Encode() []byte {
	w := New(KindJoin, 8+len(j.World)+len(j.Name))
	w.I32(j.User)
	w.Str(j.World)
	w.Str(j.Name)
	return w.Bytes()
}

// DecodeJoin разбирает пакет входа
func DecodeJoin(b []byte) (JoinRequest, error) {
	kind, r, err := Open(b)
	if err != nil {
		return JoinRequest{}, err
	}
	if kind != KindJoin {
		return JoinRequest{}, fmt.Errorf("ожидался пакет %s, получен %s", KindJoin, kind)
	}
	req := JoinRequest{
		User:  r.I32(),
		World: r.Str(),
		Name:  r.Str(),
	}
	if err := r.Err(); err != nil {
		return JoinRequest{}, fmt.Errorf("пакет входа: %w", err)
	}
	return req, nil
}
