package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The presence API is built from well-known types only, so the service
// descriptor is declared here instead of generated from a .proto file.

const (
	PresenceServiceName = "geoglitch.presence.v1.PresenceService"

	methodListParticipants = "/" + PresenceServiceName + "/ListParticipants"
	methodGetParticipant   = "/" + PresenceServiceName + "/GetParticipant"
)

type PresenceServer interface {
	ListParticipants(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetParticipant(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: PresenceServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListParticipants", Handler: listParticipantsHandler},
		{MethodName: "GetParticipant", Handler: getParticipantHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "geoglitch/presence/v1/presence.proto",
}

func RegisterPresenceServer(s grpc.ServiceRegistrar, srv PresenceServer) {
	s.RegisterService(&PresenceServiceDesc, srv)
}

func listParticipantsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).ListParticipants(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListParticipants}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).ListParticipants(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getParticipantHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PresenceServer).GetParticipant(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetParticipant}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).GetParticipant(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// PresenceClient calls PresenceService over cc.
type PresenceClient struct {
	cc grpc.ClientConnInterface
}

func NewPresenceClient(cc grpc.ClientConnInterface) *PresenceClient {
	return &PresenceClient{cc: cc}
}

func (c *PresenceClient) ListParticipants(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListParticipants, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PresenceClient) GetParticipant(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetParticipant, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
