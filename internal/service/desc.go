package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Имена сервиса и методов на проводе
const (
	ServiceName = "tileserver.WorldService"

	methodJoin   = "/" + ServiceName + "/Join"
	methodAct    = "/" + ServiceName + "/Act"
	methodEvents = "/" + ServiceName + "/Events"
	methodLeave  = "/" + ServiceName + "/Leave"

	// SessionHeader - ключ метаданных с идентификатором сессии для Act
	SessionHeader = "x-session-id"
)

// WorldServer - серверная часть WorldService. Тела запросов и событий -
// бинарные пакеты из internal/packet, завернутые в BytesValue.
type WorldServer interface {
	// Join принимает пакет входа и возвращает идентификатор сессии
	Join(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
	// Act принимает пакет действия; сессия передается в метаданных
	Act(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error)
	// Events отдает поток исходящих пакетов сессии
	Events(req *wrapperspb.StringValue, stream WorldEventsServer) error
	// Leave закрывает сессию
	Leave(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error)
}

// WorldEventsServer - серверный поток событий
type WorldEventsServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type worldEventsServer struct {
	grpc.ServerStream
}

func (x *worldEventsServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterWorldServer регистрирует реализацию на gRPC-сервере
func RegisterWorldServer(s grpc.ServiceRegistrar, srv WorldServer) {
	s.RegisterService(&WorldServiceDesc, srv)
}

func joinHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServer).Join(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodJoin}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorldServer).Join(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func actHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServer).Act(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAct}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorldServer).Act(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func leaveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorldServer).Leave(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodLeave}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorldServer).Leave(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(WorldServer).Events(m, &worldEventsServer{stream})
}

// WorldServiceDesc описывает сервис для grpc.Server
var WorldServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WorldServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: joinHandler},
		{MethodName: "Act", Handler: actHandler},
		{MethodName: "Leave", Handler: leaveHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Events", Handler: eventsHandler, ServerStreams: true},
	},
	Metadata: "tileserver/world.proto",
}

// Client - клиент WorldService
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Join входит в мир и возвращает идентификатор сессии
func (c *Client) Join(ctx context.Context, joinPacket []byte, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodJoin, wrapperspb.Bytes(joinPacket), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Act отправляет пакет действия от имени сессии
func (c *Client) Act(ctx context.Context, session string, actionPacket []byte, opts ...grpc.CallOption) error {
	ctx = metadata.AppendToOutgoingContext(ctx, SessionHeader, session)
	return c.cc.Invoke(ctx, methodAct, wrapperspb.Bytes(actionPacket), new(emptypb.Empty), opts...)
}

// Leave закрывает сессию
func (c *Client) Leave(ctx context.Context, session string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, methodLeave, wrapperspb.String(session), new(emptypb.Empty), opts...)
}

// EventStream - клиентская сторона потока событий
type EventStream struct {
	grpc.ClientStream
}

// Recv возвращает следующий пакет
func (x *EventStream) Recv() ([]byte, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m.GetValue(), nil
}

// Events открывает поток событий сессии
func (c *Client) Events(ctx context.Context, session string, opts ...grpc.CallOption) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &WorldServiceDesc.Streams[0], methodEvents, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(wrapperspb.String(session)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream}, nil
}
