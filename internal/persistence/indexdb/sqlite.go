// Package indexdb maintains a secondary SQLite index over tick records,
// save slots and achievements. It is advisory: the JSONL tick log and
// the save files remain the source of truth, so writes that fall behind
// are dropped rather than stalling the simulation.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"voxfab.dev/internal/persistence/save"
	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/catalogs"
	"voxfab.dev/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu fences enqueues against close(ch): a send may not start after
	// closed flips, or it would panic on the closed channel.
	mu     sync.RWMutex
	closed bool
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSave
	reqAchievement
)

type req struct {
	kind reqKind

	tick        tickRow
	save        saveRow
	achievement achievementRow
}

type tickRow struct {
	Tick   uint64
	Digest string
	Events []protocol.EventObs
}

type saveRow struct {
	Slot       string
	Path       string
	Version    string
	Tick       uint64
	Seed       int64
	RecordedAt string
}

type achievementRow struct {
	ID           string
	UnlockedTick uint64
	RecordedAt   string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			version TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id TEXT PRIMARY KEY,
			unlocked_tick INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_tick ON saves(tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// enqueue offers one request to the writer goroutine. Drops when the
// buffer is full or the index is closed.
func (s *SQLiteIndex) enqueue(r req) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

// RecordTick queues one tick record. Implements the world recorder
// contract; drops when the writer falls behind.
func (s *SQLiteIndex) RecordTick(tick uint64, digest string, events []protocol.EventObs) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqTick, tick: tickRow{Tick: tick, Digest: digest, Events: events}})
}

// RecordSave indexes a written save slot and its achievements.
func (s *SQLiteIndex) RecordSave(slot, path string, doc *save.Document) {
	if s == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	s.enqueue(req{kind: reqSave, save: saveRow{
		Slot:       slot,
		Path:       path,
		Version:    doc.Version,
		Tick:       doc.Tick,
		Seed:       doc.Seed,
		RecordedAt: now,
	}})
	for _, a := range doc.Achievements {
		s.enqueue(req{kind: reqAchievement, achievement: achievementRow{ID: a.ID, UnlockedTick: a.UnlockedTick, RecordedAt: now}})
	}
}

// UpsertCatalogs stores the loaded catalog digests and raw JSON so a
// save can be matched against the config that produced it.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("blocks_defs", filepath.Join(configDir, "blocks.json"))
		read("items_defs", filepath.Join(configDir, "items.json"))
		read("recipes", filepath.Join(configDir, "recipes.json"))
		read("quests", filepath.Join(configDir, "quests.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["blocks_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b := raw["items_defs"]; len(b) > 0 {
		rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	if b := raw["recipes"]; len(b) > 0 {
		rows = append(rows, kv{name: "recipes", digest: cats.Recipes.Digest, json: b})
	}
	if b := raw["quests"]; len(b) > 0 {
		rows = append(rows, kv{name: "quests", digest: cats.Quests.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,events,raw_json) VALUES(?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(slot,path,version,tick,seed,recorded_at) VALUES(?,?,?,?,?,?)`)
	insertAch, _ := s.db.Prepare(`INSERT OR IGNORE INTO achievements(id,unlocked_tick,recorded_at) VALUES(?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertAch != nil {
			_ = insertAch.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			if insertTick == nil {
				continue
			}
			b, _ := json.Marshal(r.tick.Events)
			if _, err := tx.Stmt(insertTick).Exec(
				int64(r.tick.Tick),
				r.tick.Digest,
				len(r.tick.Events),
				string(b),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSave:
			if insertSave == nil {
				continue
			}
			sv := r.save
			if _, err := tx.Stmt(insertSave).Exec(
				sv.Slot, sv.Path, sv.Version, int64(sv.Tick), sv.Seed, sv.RecordedAt,
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqAchievement:
			if insertAch == nil {
				continue
			}
			a := r.achievement
			if _, err := tx.Stmt(insertAch).Exec(a.ID, int64(a.UnlockedTick), a.RecordedAt); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
