package grpcx

import (
	"context"
	"log/slog"
	"path"
	"runtime/debug"
	"time"

	"github.com/geoglitch/presence-service/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// UnaryServerInterceptor logs each presence call with the participant it
// asked about, turns panics into Internal and puts a deadline on calls that
// arrive without one.
func UnaryServerInterceptor(defaultTimeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok && defaultTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				slog.Error("presence rpc panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}

			args := append(callArgs(ctx, req, resp),
				"method", path.Base(info.FullMethod),
				"code", status.Code(err).String(),
				"dur_ms", time.Since(start).Milliseconds())
			if err != nil {
				args = append(args, "err", err.Error())
			}
			args = append(args, logger.Args(ctx)...)
			slog.Log(ctx, rpcLevel(err), "presence rpc", args...)
		}()

		return handler(ctx, req)
	}
}

// callArgs picks the presence fields worth logging out of a call.
func callArgs(ctx context.Context, req, resp any) []any {
	var args []any
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		args = append(args, "peer", p.Addr.String())
	}
	if id, ok := req.(*wrapperspb.StringValue); ok {
		args = append(args, "participant", id.GetValue())
	}
	if list, ok := resp.(*structpb.ListValue); ok {
		args = append(args, "participants", len(list.GetValues()))
	}
	return args
}

// NotFound is a normal answer for a participant that already left.
func rpcLevel(err error) slog.Level {
	switch status.Code(err) {
	case codes.OK, codes.NotFound, codes.InvalidArgument:
		return slog.LevelInfo
	case codes.Canceled, codes.DeadlineExceeded:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// StreamServerInterceptor covers the health Watch stream.
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("grpc stream panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			slog.Debug("grpc stream",
				"method", info.FullMethod,
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(srv, ss)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
