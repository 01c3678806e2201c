package grpcx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Directory interface {
	Snapshot() []domain.Summary
	Find(id string) (domain.Participant, bool)
}

type Server struct {
	users Directory
}

func NewServer(users Directory) *Server {
	return &Server{users: users}
}

// New builds a grpc.Server with the presence API and the standard health
// service registered. Health starts out SERVING.
func New(users Directory, defaultTimeout time.Duration) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(defaultTimeout)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)

	RegisterPresenceServer(gs, NewServer(users))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(PresenceServiceName, healthpb.HealthCheckResponse_SERVING)

	return gs, hs
}

func (s *Server) ListParticipants(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	items := lo.Map(s.users.Snapshot(), func(u domain.Summary, _ int) any {
		return summaryFields(u)
	})
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (s *Server) GetParticipant(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(in.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "participant id is required")
	}

	p, ok := s.users.Find(id)
	if !ok {
		return nil, mapErr(domain.ErrParticipantNotFound)
	}
	out, err := structpb.NewStruct(summaryFields(p.Summary()))
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func summaryFields(u domain.Summary) map[string]any {
	m := map[string]any{
		"id":       u.ID,
		"nickname": u.Nickname,
		"position": nil,
	}
	if u.Position != nil {
		pos := map[string]any{
			"lat": u.Position.Lat,
			"lng": u.Position.Lng,
		}
		if u.Position.Accuracy != nil {
			pos["accuracy"] = *u.Position.Accuracy
		}
		m["position"] = pos
	}
	return m
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrParticipantNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPosition), errors.Is(err, domain.ErrInvalidNickname):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
