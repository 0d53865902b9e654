package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "hookchat.v1.ChatService"

// FullMethod returns the gRPC method path for name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ChatServiceServer is the server API of the ChatService.
type ChatServiceServer interface {
	GetStatus(context.Context, *Empty) (*StatusResponse, error)
	ListChats(context.Context, *Empty) (*ChatList, error)
	GetChat(context.Context, *ChatRef) (*ChatResponse, error)
	CreateChat(context.Context, *CreateChatRequest) (*ChatResponse, error)
	DeleteChat(context.Context, *ChatRef) (*Empty, error)
	MarkRead(context.Context, *ChatRef) (*Empty, error)
	ListMessages(context.Context, *ChatRef) (*MessageList, error)
	SendText(context.Context, *SendTextRequest) (*SendTextResponse, error)
	UpdateStatus(context.Context, *UpdateStatusRequest) (*Empty, error)
	ClearAll(context.Context, *Empty) (*Empty, error)
	WatchEvents(*WatchRequest, EventStream) error
}

// EventStream is the server side of a WatchEvents call.
type EventStream interface {
	Send(*Event) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(evt *Event) error {
	msg, err := ToStruct(evt)
	if err != nil {
		return err
	}
	return s.ServerStream.SendMsg(msg)
}

// unary builds the descriptor of a Struct-in, Struct-out method that
// dispatches to call.
func unary[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				typed := new(Req)
				if err := FromStruct(req.(*structpb.Struct), typed); err != nil {
					return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(ChatServiceServer), ctx, typed)
				if err != nil {
					return nil, err
				}
				return ToStruct(resp)
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	var req WatchRequest
	if err := FromStruct(in, &req); err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	return srv.(ChatServiceServer).WatchEvents(&req, &eventStream{stream})
}

// WatchEventsDesc describes the server stream of WatchEvents.
var WatchEventsDesc = grpc.StreamDesc{
	StreamName:    "WatchEvents",
	Handler:       watchEventsHandler,
	ServerStreams: true,
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", ChatServiceServer.GetStatus),
		unary("ListChats", ChatServiceServer.ListChats),
		unary("GetChat", ChatServiceServer.GetChat),
		unary("CreateChat", ChatServiceServer.CreateChat),
		unary("DeleteChat", ChatServiceServer.DeleteChat),
		unary("MarkRead", ChatServiceServer.MarkRead),
		unary("ListMessages", ChatServiceServer.ListMessages),
		unary("SendText", ChatServiceServer.SendText),
		unary("UpdateStatus", ChatServiceServer.UpdateStatus),
		unary("ClearAll", ChatServiceServer.ClearAll),
	},
	Streams:  []grpc.StreamDesc{WatchEventsDesc},
	Metadata: "hookchat/v1/chat.proto",
}

// RegisterChatService registers srv on s.
func RegisterChatService(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
