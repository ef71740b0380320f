package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playpool/billiards/internal/game"
	"github.com/redis/go-redis/v9"
)

// StartTableEventSubscriber relays events published on the table_events
// channel to the matching WebSocket rooms until ctx is done.
func StartTableEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; table event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.TableEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", game.TableEventsChannel)
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WS] %s subscriber stopped", game.TableEventsChannel)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				relayTableEvent(hub, []byte(msg.Payload))
			}
		}
	}()
}

func relayTableEvent(hub *Hub, payload []byte) {
	var ev game.TableEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("[WS] invalid table event payload: %v", err)
		return
	}
	if ev.TableID == "" {
		log.Printf("[WS] table event %s without table_id, dropping", ev.Type)
		return
	}

	if hub.RoomSize(ev.TableID) == 0 {
		return
	}
	log.Printf("[WS] relaying %s to table %s", ev.Type, ev.TableID)
	hub.BroadcastToTable(ev.TableID, ev)

	if ev.Type == "table_closed" {
		hub.CloseRoom(ev.TableID)
	}
}
