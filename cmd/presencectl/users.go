package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/geoglitch/presence-service/internal/domain"
	grpcx "github.com/geoglitch/presence-service/internal/transport/grpc"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func usersAction(ctx context.Context, c *cli.Command) error {
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()

	var (
		users []domain.Summary
		err   error
	)
	if target := c.String("grpc"); target != "" {
		users, err = usersOverGRPC(ctx, target)
	} else {
		users, err = usersOverHTTP(ctx, c.String("addr"))
	}
	if err != nil {
		return err
	}

	renderUsers(os.Stdout, users)
	return nil
}

func usersOverHTTP(ctx context.Context, base string) ([]domain.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/users", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get users: unexpected status %s", resp.Status)
	}

	var users []domain.Summary
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func usersOverGRPC(ctx context.Context, target string) ([]domain.Summary, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	list, err := grpcx.NewPresenceClient(conn).ListParticipants(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return lo.Map(list.GetValues(), func(v *structpb.Value, _ int) domain.Summary {
		return summaryFromStruct(v.GetStructValue())
	}), nil
}

func summaryFromStruct(s *structpb.Struct) domain.Summary {
	m := s.AsMap()
	out := domain.Summary{}
	out.ID, _ = m["id"].(string)
	out.Nickname, _ = m["nickname"].(string)

	pos, ok := m["position"].(map[string]any)
	if !ok {
		return out
	}
	p := &domain.Position{}
	p.Lat, _ = pos["lat"].(float64)
	p.Lng, _ = pos["lng"].(float64)
	if acc, ok := pos["accuracy"].(float64); ok {
		p.Accuracy = lo.ToPtr(acc)
	}
	out.Position = p
	return out
}
