package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"

	"github.com/playpool/billiards/internal/config"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrTooManyTables  = errors.New("too many active tables")
	ErrManagerStopped = errors.New("table manager is not running")
)

// FrameSink receives a snapshot after every frame.
type FrameSink interface {
	PublishFrame(tableID string, snap Snapshot)
}

// ShotSink receives every settled shot.
type ShotSink interface {
	RecordShot(rec ShotRecord)
}

// CloseSink is told when a table shuts down.
type CloseSink interface {
	TableClosed(tableID string, reason GameStatus)
}

// sinkSet fans table output out to the registered sinks.
type sinkSet struct {
	frames []FrameSink
	shots  []ShotSink
	closes []CloseSink
	mu     sync.RWMutex
}

func (s *sinkSet) add(sink interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := false
	if fs, ok := sink.(FrameSink); ok {
		s.frames = append(s.frames, fs)
		added = true
	}
	if ss, ok := sink.(ShotSink); ok {
		s.shots = append(s.shots, ss)
		added = true
	}
	if cs, ok := sink.(CloseSink); ok {
		s.closes = append(s.closes, cs)
		added = true
	}
	return added
}

func (s *sinkSet) publishFrame(tableID string, snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fs := range s.frames {
		fs.PublishFrame(tableID, snap)
	}
}

func (s *sinkSet) recordShot(rec ShotRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ss := range s.shots {
		ss.RecordShot(rec)
	}
}

func (s *sinkSet) tableClosed(tableID string, reason GameStatus) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cs := range s.closes {
		cs.TableClosed(tableID, reason)
	}
}

// TableManager owns every open table.
type TableManager struct {
	tables map[string]*TableSession
	config *config.Config
	sinks  *sinkSet
	ctx    context.Context
	mu     sync.RWMutex
}

// NewTableManager creates a manager. Call Start before creating tables.
func NewTableManager(cfg *config.Config) *TableManager {
	return &TableManager{
		tables: make(map[string]*TableSession),
		config: cfg,
		sinks:  &sinkSet{},
	}
}

// Start binds the manager to ctx; table frame loops stop when it is done.
func (gm *TableManager) Start(ctx context.Context) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.ctx = ctx
}

// AddSink registers anything implementing FrameSink, ShotSink or CloseSink.
func (gm *TableManager) AddSink(sink interface{}) {
	if !gm.sinks.add(sink) {
		log.Printf("[TABLE] ignoring sink %T: implements no sink interface", sink)
	}
}

// GetConfig returns the manager config.
func (gm *TableManager) GetConfig() *config.Config {
	return gm.config
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateTableID generates a unique table ID
func generateTableID() string {
	return "table_" + generateToken(8)
}

// CreateTable racks a new table and starts its frame loop.
func (gm *TableManager) CreateTable(refereePINHash string) (*TableSession, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if gm.ctx == nil {
		return nil, ErrManagerStopped
	}
	if limit := gm.config.MaxTables; limit > 0 && len(gm.tables) >= limit {
		return nil, ErrTooManyTables
	}

	t := NewTableSession(generateTableID(), gm.sinks)
	t.RefereePINHash = refereePINHash
	gm.tables[t.ID] = t

	go t.Run(gm.ctx, gm.config.FrameRate)

	log.Printf("[TABLE] Created %s (%d active)", t.ID, len(gm.tables))
	return t, nil
}

// GetTable looks a table up by ID.
func (gm *TableManager) GetTable(id string) (*TableSession, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	t, ok := gm.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// CloseTable stops a table's loop and forgets it.
func (gm *TableManager) CloseTable(id string, reason GameStatus) error {
	gm.mu.Lock()
	t, ok := gm.tables[id]
	if ok {
		delete(gm.tables, id)
	}
	remaining := len(gm.tables)
	gm.mu.Unlock()

	if !ok {
		return ErrTableNotFound
	}
	if t.Close(reason) {
		gm.sinks.tableClosed(id, reason)
	}
	log.Printf("[TABLE] Closed %s (%s, %d active)", id, reason, remaining)
	return nil
}

// ActiveTableCount returns the number of open tables.
func (gm *TableManager) ActiveTableCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.tables)
}

// Tables returns the open tables.
func (gm *TableManager) Tables() []*TableSession {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := make([]*TableSession, 0, len(gm.tables))
	for _, t := range gm.tables {
		out = append(out, t)
	}
	return out
}
