package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "presencectl",
		Usage: "inspect a running presence-service",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "list connected participants",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "http://localhost:8080", Usage: "HTTP base URL"},
					&cli.StringFlag{Name: "grpc", Usage: "query the gRPC API at host:port instead of HTTP"},
					&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second},
				},
				Action: usersAction,
			},
			{
				Name:  "watch",
				Usage: "register over WebSocket and print every userUpdate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "WebSocket URL"},
					&cli.StringFlag{Name: "nickname", Value: "presencectl", Usage: "nickname to register with"},
				},
				Action: watchAction,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
