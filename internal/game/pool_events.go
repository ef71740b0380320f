package game

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// TableEventsChannel is the Redis channel table events are published on.
const TableEventsChannel = "table_events"

// TableEvent is the payload published for shot and lifecycle events.
type TableEvent struct {
	Type      string      `json:"type"` // "shot_settled", "turn_changed", "table_closed"
	TableID   string      `json:"table_id"`
	Shot      *ShotRecord `json:"shot,omitempty"`
	State     GameState   `json:"state,omitempty"`
	Reason    GameStatus  `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ShotEvents builds the events a settled shot produces.
func ShotEvents(rec ShotRecord) []TableEvent {
	shot := rec
	events := []TableEvent{{
		Type:      "shot_settled",
		TableID:   rec.TableID,
		Shot:      &shot,
		State:     rec.NextState,
		Timestamp: rec.SettledAt,
	}}
	if rec.TurnSwitched {
		events = append(events, TableEvent{
			Type:      "turn_changed",
			TableID:   rec.TableID,
			State:     rec.NextState,
			Timestamp: rec.SettledAt,
		})
	}
	return events
}

// ClosedEvent builds the event published when a table shuts down.
func ClosedEvent(tableID string, reason GameStatus) TableEvent {
	return TableEvent{Type: "table_closed", TableID: tableID, Reason: reason, Timestamp: time.Now()}
}

// EventPublisher publishes table events to Redis so every server instance
// can relay them to its WebSocket rooms.
type EventPublisher struct {
	rdb *redis.Client
}

func NewEventPublisher(rdb *redis.Client) *EventPublisher {
	return &EventPublisher{rdb: rdb}
}

// RecordShot implements ShotSink. The events of one shot are published in
// order from a single goroutine.
func (p *EventPublisher) RecordShot(rec ShotRecord) {
	p.publish(ShotEvents(rec)...)
}

// TableClosed implements CloseSink.
func (p *EventPublisher) TableClosed(tableID string, reason GameStatus) {
	p.publish(ClosedEvent(tableID, reason))
}

func (p *EventPublisher) publish(events ...TableEvent) {
	if p == nil || p.rdb == nil || len(events) == 0 {
		return
	}
	payloads := encodeEvents(events)
	go func() {
		for i, b := range payloads {
			ev := events[i]
			if b == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			n, err := p.rdb.Publish(ctx, TableEventsChannel, b).Result()
			cancel()
			if err != nil {
				log.Printf("[REDIS] publish %s failed: table=%s err=%v", ev.Type, ev.TableID, err)
				continue
			}
			log.Printf("[REDIS] published %s: table=%s subscribers=%d", ev.Type, ev.TableID, n)
		}
	}()
}

// encodeEvents marshals events in order. A nil entry marks an event that
// could not be encoded.
func encodeEvents(events []TableEvent) [][]byte {
	payloads := make([][]byte, len(events))
	for i, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[REDIS] failed to marshal %s event for table %s: %v", ev.Type, ev.TableID, err)
			continue
		}
		payloads[i] = b
	}
	return payloads
}
