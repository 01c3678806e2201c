package grpcx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"

	"github.com/geoglitch/presence-service/internal/service"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestCallArgs(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 5100},
	})
	list, err := structpb.NewList([]any{"a", "b"})
	require.NoError(t, err)

	tests := []struct {
		name string
		ctx  context.Context
		req  any
		resp any
		want []any
	}{
		{
			name: "get participant",
			ctx:  ctx,
			req:  wrapperspb.String("id-bob"),
			want: []any{"peer", "10.0.0.7:5100", "participant", "id-bob"},
		},
		{
			name: "list participants",
			ctx:  context.Background(),
			req:  &emptypb.Empty{},
			resp: list,
			want: []any{"participants", 2},
		},
		{
			name: "nothing known",
			ctx:  context.Background(),
			req:  &emptypb.Empty{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, callArgs(tt.ctx, tt.req, tt.resp))
		})
	}
}

func TestRPCLevel(t *testing.T) {
	tests := []struct {
		err  error
		want slog.Level
	}{
		{err: nil, want: slog.LevelInfo},
		{err: status.Error(codes.NotFound, "participant not found"), want: slog.LevelInfo},
		{err: status.Error(codes.DeadlineExceeded, "slow"), want: slog.LevelWarn},
		{err: status.Error(codes.Internal, "boom"), want: slog.LevelError},
		{err: errors.New("plain"), want: slog.LevelError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, rpcLevel(tt.err), "err=%v", tt.err)
	}
}

func TestUnaryInterceptor_LogsRequestedParticipant(t *testing.T) {
	req := require.New(t)
	logs := captureLogs(t)

	conn, _ := startBufServer(t, service.NewRegistry())
	_, err := NewPresenceClient(conn).GetParticipant(context.Background(), wrapperspb.String("id-gone"))
	req.Equal(codes.NotFound, status.Code(err))

	out := logs.String()
	req.Contains(out, `"msg":"presence rpc"`)
	req.Contains(out, `"participant":"id-gone"`)
	req.Contains(out, `"method":"GetParticipant"`)
	req.Contains(out, `"code":"NotFound"`)
}
