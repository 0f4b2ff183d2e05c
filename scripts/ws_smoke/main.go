package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomsync-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "smoke", "room id")
	name := flag.String("name", "tester", "display name sent with join-room")
	token := flag.String("token", "", "handshake token, if the server verifies them")
	patch := flag.String("patch", `{"smoke":true}`, "JSON patch to send as state-update")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if !json.Valid([]byte(*patch)) {
		return fmt.Errorf("patch is not valid json: %s", *patch)
	}

	target, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	q := target.Query()
	q.Set("room", *room)
	if *token != "" {
		q.Set("token", *token)
	}
	target.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, target.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoinRoom, proto.JoinData{Room: *room, DisplayName: *name}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Room  string          `json:"room"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		fmt.Printf("event=%s room=%s data=%s\n", outbound.Event, outbound.Room, outbound.Data)

		if outbound.Event != proto.EventInitialState {
			continue
		}
		if err := send(proto.InboundTypeStateUpdate, proto.StateUpdateData{Patch: json.RawMessage(*patch)}); err != nil {
			return err
		}
		if err := send(proto.InboundTypeRequestState, proto.RequestStateData{Room: *room}); err != nil {
			return err
		}

		var snapshot struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		for snapshot.Event != proto.EventInitialState {
			if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
		}
		fmt.Printf("snapshot after patch: %s\n", snapshot.Data)
		return nil
	}
}
