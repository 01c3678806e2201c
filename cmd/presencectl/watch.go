package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/geoglitch/presence-service/internal/domain"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
)

type inbound struct {
	Type    string           `json:"type"`
	ID      string           `json:"id"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Users   []domain.Summary `json:"users"`
}

func watchAction(ctx context.Context, c *cli.Command) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.String("url"), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	register, _ := json.Marshal(map[string]string{"type": "register", "nickname": c.String("nickname")})
	if err := conn.WriteMessage(websocket.TextMessage, register); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "registered":
			fmt.Println(color.Green.Sprintf("registered as %s", msg.ID))
		case "userUpdate":
			fmt.Println(color.Cyan.Sprintf("userUpdate: %d participant(s)", len(msg.Users)))
			renderUsers(os.Stdout, msg.Users)
		case "error":
			if msg.Code == "nickname_taken" || msg.Code == "invalid_nickname" {
				return errors.New(color.Red.Sprintf("%s: %s", msg.Code, msg.Message))
			}
			fmt.Println(color.Yellow.Sprintf("%s: %s", msg.Code, msg.Message))
		default:
			fmt.Println(color.Gray.Sprintf("%s frame: %s", msg.Type, data))
		}
	}
}
