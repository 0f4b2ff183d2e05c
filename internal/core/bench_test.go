package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	sender := NewClientBuffered("sender", "sender", "bench", 1024)
	hub.RegisterClient(sender)
	sender.Commands <- &Command{Kind: CommandJoinRoom}
	<-sender.Events

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClientBuffered(fmt.Sprintf("c%d", i), "client", "bench", 1024)
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinRoom}
		for ev := range c.Events {
			if ev.Kind == EventInitialState {
				break
			}
		}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}
	go func() {
		for range sender.Events {
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{Kind: CommandStateUpdate, Patch: []byte(`{"p":1}`)}
		for ev := range target.Events {
			if ev.Kind == EventStateUpdate {
				break
			}
		}
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
