package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playpool/billiards/internal/config"
	"github.com/playpool/billiards/internal/game"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "test",
		FrameRate:              60,
		MaxTables:              4,
		JWTSecret:              "test-secret",
		ControlTokenTTLMinutes: 5,
	}
}

// setupRouter wires the table routes the way api.SetupRoutes does, minus CORS.
func setupRouter(t *testing.T) (*gin.Engine, *game.TableManager, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := testConfig()
	gm := game.NewTableManager(cfg)
	gm.Start(ctx)

	r := gin.New()
	r.GET("/health", HealthCheck(gm))
	r.GET("/tables", ListTables(gm))
	r.POST("/tables", CreateTable(gm, cfg))
	r.GET("/tables/:id", GetTable(gm))
	r.GET("/tables/:id/shots", ListShots(game.NewShotJournal(nil)))
	control := r.Group("/tables/:id", ControlTokenMiddleware(cfg))
	control.POST("/shot", TakeShot(gm))
	control.POST("/reset", ResetTable(gm))
	control.POST("/pause", PauseTable(gm))
	control.PUT("/state", SetTableState(gm))
	control.DELETE("", CloseTable(gm))
	return r, gm, cfg
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func createTable(t *testing.T, r *gin.Engine, body interface{}) (string, string) {
	t.Helper()
	w, out := doJSON(r, http.MethodPost, "/tables", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create table: status %d body %s", w.Code, w.Body.String())
	}
	id, _ := out["table_id"].(string)
	token, _ := out["control_token"].(string)
	if id == "" || token == "" {
		t.Fatalf("create table response missing id or token: %v", out)
	}
	if w.Header().Get("X-Table-ID") != id {
		t.Errorf("X-Table-ID header = %q", w.Header().Get("X-Table-ID"))
	}
	return id, token
}

func TestHealthCheck(t *testing.T) {
	r, _, _ := setupRouter(t)
	w, out := doJSON(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health: %d %v", w.Code, out)
	}
}

func TestCreateAndGetTable(t *testing.T) {
	r, _, _ := setupRouter(t)
	id, _ := createTable(t, r, nil)

	w, out := doJSON(r, http.MethodGet, "/tables/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get table: %d", w.Code)
	}
	table, ok := out["table"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no table snapshot: %v", out)
	}
	if table["state"] != string(game.StatePlayer1Turn) {
		t.Errorf("state = %v", table["state"])
	}
	if balls, _ := table["balls"].([]interface{}); len(balls) != game.NumBalls {
		t.Errorf("snapshot has %d balls", len(balls))
	}
	if out["has_referee"] != false {
		t.Errorf("has_referee = %v", out["has_referee"])
	}

	w, out = doJSON(r, http.MethodGet, "/tables", "", nil)
	if tables, _ := out["tables"].([]interface{}); w.Code != http.StatusOK || len(tables) != 1 {
		t.Errorf("list tables: %d %v", w.Code, out)
	}

	if w, _ := doJSON(r, http.MethodGet, "/tables/table_missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing table: %d", w.Code)
	}
}

func TestCreateTableRejectsBadPIN(t *testing.T) {
	r, _, _ := setupRouter(t)
	for _, pin := range []string{"12", "12ab", "123456789"} {
		w, _ := doJSON(r, http.MethodPost, "/tables", "", gin.H{"referee_pin": pin})
		if w.Code != http.StatusBadRequest {
			t.Errorf("pin %q: status %d", pin, w.Code)
		}
	}
}

func TestCreateTableLimit(t *testing.T) {
	r, _, cfg := setupRouter(t)
	for i := 0; i < cfg.MaxTables; i++ {
		createTable(t, r, nil)
	}
	if w, _ := doJSON(r, http.MethodPost, "/tables", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("table over the limit: status %d", w.Code)
	}
}

func TestTakeShot(t *testing.T) {
	r, _, _ := setupRouter(t)
	id, token := createTable(t, r, nil)
	otherID, otherToken := createTable(t, r, nil)
	path := "/tables/" + id + "/shot"
	shot := gin.H{"dir_x": 1, "dir_y": 0, "power": 10}

	if w, _ := doJSON(r, http.MethodPost, path, "", shot); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, path, "garbage", shot); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, path, otherToken, shot); w.Code != http.StatusUnauthorized {
		t.Errorf("token for table %s accepted on %s: %d", otherID, id, w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, path, token, gin.H{"dir_x": 1, "dir_y": 0, "power": 25}); w.Code != http.StatusBadRequest {
		t.Errorf("power over max: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, path, token, gin.H{"dir_x": 0, "dir_y": 0, "power": 5}); w.Code != http.StatusBadRequest {
		t.Errorf("zero aim: %d", w.Code)
	}

	w, out := doJSON(r, http.MethodPost, path, token, shot)
	if w.Code != http.StatusAccepted {
		t.Fatalf("shot: %d %s", w.Code, w.Body.String())
	}
	if out["shot_number"] != float64(1) || out["shooter"] != string(game.StatePlayer1Turn) {
		t.Errorf("shot response = %v", out)
	}

	if w, _ := doJSON(r, http.MethodPost, path, token, shot); w.Code != http.StatusConflict {
		t.Errorf("shot while balls are moving: %d", w.Code)
	}
}

func TestPauseAndReset(t *testing.T) {
	r, _, _ := setupRouter(t)
	id, token := createTable(t, r, nil)

	if w, _ := doJSON(r, http.MethodPost, "/tables/"+id+"/pause", token, gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("pause without flag: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, "/tables/"+id+"/pause", token, gin.H{"paused": true}); w.Code != http.StatusOK {
		t.Fatalf("pause: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPost, "/tables/"+id+"/shot", token, gin.H{"dir_x": 1, "dir_y": 0, "power": 5}); w.Code != http.StatusConflict {
		t.Errorf("shot on paused table: %d", w.Code)
	}

	w, out := doJSON(r, http.MethodPost, "/tables/"+id+"/reset", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: %d", w.Code)
	}
	if table, _ := out["table"].(map[string]interface{}); table["paused"] != false {
		t.Errorf("reset table still paused: %v", table["paused"])
	}
}

func TestSetTableStateWithRefereePIN(t *testing.T) {
	r, _, _ := setupRouter(t)
	id, token := createTable(t, r, gin.H{"referee_pin": "2468"})
	path := "/tables/" + id + "/state"

	_, out := doJSON(r, http.MethodGet, "/tables/"+id, "", nil)
	if out["has_referee"] != true {
		t.Errorf("has_referee = %v", out["has_referee"])
	}

	if w, _ := doJSON(r, http.MethodPut, path, token, gin.H{"state": "FOUL"}); w.Code != http.StatusForbidden {
		t.Errorf("missing PIN: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPut, path, token, gin.H{"state": "FOUL", "referee_pin": "1111"}); w.Code != http.StatusForbidden {
		t.Errorf("wrong PIN: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodPut, path, token, gin.H{"state": "BOGUS", "referee_pin": "2468"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown state: %d", w.Code)
	}

	w, out := doJSON(r, http.MethodPut, path, token, gin.H{"state": "player2_win", "referee_pin": "2468"})
	if w.Code != http.StatusOK || out["state"] != string(game.StatePlayer2Win) {
		t.Fatalf("set state: %d %v", w.Code, out)
	}
}

func TestSetTableStateWithoutReferee(t *testing.T) {
	r, _, _ := setupRouter(t)
	id, token := createTable(t, r, nil)

	w, _ := doJSON(r, http.MethodPut, "/tables/"+id+"/state", token, gin.H{"state": "ASSIGNMENT"})
	if w.Code != http.StatusOK {
		t.Fatalf("set state: %d", w.Code)
	}
	_, out := doJSON(r, http.MethodGet, "/tables/"+id, "", nil)
	if table, _ := out["table"].(map[string]interface{}); table["state"] != string(game.StateAssignment) {
		t.Errorf("state = %v", table["state"])
	}
}

func TestCloseTable(t *testing.T) {
	r, gm, _ := setupRouter(t)
	id, token := createTable(t, r, nil)

	if w, _ := doJSON(r, http.MethodDelete, "/tables/"+id, token, nil); w.Code != http.StatusOK {
		t.Fatalf("close: %d", w.Code)
	}
	if gm.ActiveTableCount() != 0 {
		t.Errorf("table still open")
	}
	if w, _ := doJSON(r, http.MethodGet, "/tables/"+id, "", nil); w.Code != http.StatusNotFound {
		t.Errorf("closed table still served: %d", w.Code)
	}
	if w, _ := doJSON(r, http.MethodDelete, "/tables/"+id, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("double close: %d", w.Code)
	}
}

func TestListShotsWithoutJournal(t *testing.T) {
	r, _, _ := setupRouter(t)
	w, out := doJSON(r, http.MethodGet, "/tables/any/shots?limit=5", "", nil)
	if shots, ok := out["shots"].([]interface{}); w.Code != http.StatusOK || !ok || len(shots) != 0 {
		t.Errorf("shots: %d %v", w.Code, out)
	}
	if w, _ := doJSON(r, http.MethodGet, "/tables/any/shots?limit=-1", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: %d", w.Code)
	}
}

func TestControlTokenClaims(t *testing.T) {
	cfg := testConfig()
	token, exp, err := IssueControlToken(cfg, "table_abc")
	if err != nil {
		t.Fatalf("IssueControlToken: %v", err)
	}
	if time.Until(exp) > 6*time.Minute || time.Until(exp) < 4*time.Minute {
		t.Errorf("expiry %v not ~5 minutes out", exp)
	}
	id, err := parseControlToken(cfg, token)
	if err != nil || id != "table_abc" {
		t.Errorf("parseControlToken = %q, %v", id, err)
	}

	other := *cfg
	other.JWTSecret = "other-secret"
	if _, err := parseControlToken(&other, token); err == nil {
		t.Errorf("token accepted with the wrong secret")
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"table_id": "table_abc",
		"exp":      time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := parseControlToken(cfg, signed); err == nil {
		t.Errorf("expired token accepted")
	}

	noTable := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	signed, _ = noTable.SignedString([]byte(cfg.JWTSecret))
	if _, err := parseControlToken(cfg, signed); err == nil {
		t.Errorf("token without table_id accepted")
	}
}
