package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playpool/billiards/internal/config"
	"github.com/playpool/billiards/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

type wsFixture struct {
	gm    *game.TableManager
	hub   *Hub
	table *game.TableSession
	srv   *httptest.Server
}

func setupFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gm := game.NewTableManager(&config.Config{FrameRate: 60, MaxTables: 2})
	gm.Start(ctx)
	table, err := gm.CreateTable("")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	hub := NewHub()
	go hub.Run(ctx.Done())

	r := gin.New()
	r.GET("/tables/:id/ws", HandleTableWebSocket(gm, hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &wsFixture{gm: gm, hub: hub, table: table, srv: srv}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/tables/" + f.table.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.RoomSize(f.table.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never joined the room")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return kind, data
}

func readFrame(t *testing.T, conn *websocket.Conn) game.Snapshot {
	t.Helper()
	kind, data := readMessage(t, conn)
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected a binary frame, got %s", data)
	}
	var snap game.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return snap
}

func TestTableWebSocketSendsStateFirst(t *testing.T) {
	f := setupFixture(t)
	conn := f.dial(t)

	kind, data := readMessage(t, conn)
	if kind != websocket.TextMessage {
		t.Fatalf("first message is not text")
	}
	var msg struct {
		Type  string        `json:"type"`
		Table game.Snapshot `json:"table"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if msg.Type != "table_state" || msg.Table.TableID != f.table.ID || len(msg.Table.Balls) != game.NumBalls {
		t.Errorf("state message wrong: type=%s id=%s balls=%d", msg.Type, msg.Table.TableID, len(msg.Table.Balls))
	}

	conn.WriteJSON(WSMessage{Type: "ping"})
	_, data = readMessage(t, conn)
	if !strings.Contains(string(data), `"pong"`) {
		t.Errorf("ping reply = %s", data)
	}
}

func TestPublishFrameSamplesStillTable(t *testing.T) {
	f := setupFixture(t)
	conn := f.dial(t)
	readMessage(t, conn) // table_state

	id := f.table.ID
	f.hub.PublishFrame(id, game.Snapshot{TableID: id, Frame: 7, ShotInProgress: true})
	f.hub.PublishFrame(id, game.Snapshot{TableID: id, Frame: 8})  // the settling frame
	f.hub.PublishFrame(id, game.Snapshot{TableID: id, Frame: 9})  // still, skipped
	f.hub.PublishFrame(id, game.Snapshot{TableID: id, Frame: 30}) // still, sampled

	for _, want := range []uint64{7, 8, 30} {
		if snap := readFrame(t, conn); snap.Frame != want || snap.TableID != id {
			t.Errorf("frame = %d (table %s), want %d", snap.Frame, snap.TableID, want)
		}
	}
}

func TestRelayTableEvent(t *testing.T) {
	f := setupFixture(t)
	conn := f.dial(t)
	readMessage(t, conn) // table_state

	rec := game.ShotRecord{TableID: f.table.ID, ShotNumber: 1, NextState: game.StatePlayer2Turn, TurnSwitched: true, Pocketed: []int{}}
	for _, ev := range game.ShotEvents(rec) {
		payload, _ := json.Marshal(ev)
		relayTableEvent(f.hub, payload)
	}
	relayTableEvent(f.hub, []byte("not json"))

	for _, want := range []string{"shot_settled", "turn_changed"} {
		kind, data := readMessage(t, conn)
		var ev game.TableEvent
		if err := json.Unmarshal(data, &ev); err != nil || kind != websocket.TextMessage {
			t.Fatalf("bad event message: %s", data)
		}
		if ev.Type != want || ev.TableID != f.table.ID {
			t.Errorf("event = %s for %s, want %s", ev.Type, ev.TableID, want)
		}
	}
}

// expectClosedThenDisconnect reads the table_closed event and then the
// normal close frame that follows it.
func expectClosedThenDisconnect(t *testing.T, f *wsFixture, conn *websocket.Conn, reason game.GameStatus) {
	t.Helper()
	kind, data := readMessage(t, conn)
	var ev game.TableEvent
	if err := json.Unmarshal(data, &ev); err != nil || kind != websocket.TextMessage {
		t.Fatalf("expected the table_closed event, got %s", data)
	}
	if ev.Type != "table_closed" || ev.TableID != f.table.ID || ev.Reason != reason {
		t.Errorf("event = %+v, want table_closed (%s)", ev, reason)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("message after table_closed: %s", data)
	} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read ended with %v, want a normal close", err)
	}

	if n := f.hub.RoomSize(f.table.ID); n != 0 {
		t.Errorf("room still has %d watchers after close", n)
	}
}

func TestLocalRelayClosesRoom(t *testing.T) {
	f := setupFixture(t)
	conn := f.dial(t)
	readMessage(t, conn) // table_state

	relay, ok := f.hub.LocalRelay().(game.CloseSink)
	if !ok {
		t.Fatalf("local relay is not a CloseSink")
	}
	relay.TableClosed(f.table.ID, game.StatusCompleted)

	expectClosedThenDisconnect(t, f, conn, game.StatusCompleted)
}

func TestRelayTableClosedEvent(t *testing.T) {
	f := setupFixture(t)
	conn := f.dial(t)
	readMessage(t, conn) // table_state

	payload, _ := json.Marshal(game.ClosedEvent(f.table.ID, game.StatusCancelled))
	relayTableEvent(f.hub, payload)

	expectClosedThenDisconnect(t, f, conn, game.StatusCancelled)

	// later frames and events for the closed room go nowhere
	f.hub.PublishFrame(f.table.ID, game.Snapshot{TableID: f.table.ID, Frame: 30})
	f.hub.BroadcastToTable(f.table.ID, game.ClosedEvent(f.table.ID, game.StatusCancelled))
}

func TestHandleTableWebSocketUnknownTable(t *testing.T) {
	f := setupFixture(t)
	r := gin.New()
	r.GET("/tables/:id/ws", HandleTableWebSocket(f.gm, f.hub))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tables/table_missing/ws", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
