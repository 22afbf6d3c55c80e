package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"voxfab.dev/internal/persistence/indexdb"
	persistlog "voxfab.dev/internal/persistence/log"
	"voxfab.dev/internal/persistence/save"
	"voxfab.dev/internal/protocol"
	"voxfab.dev/internal/sim/catalogs"
	"voxfab.dev/internal/sim/tuning"
	"voxfab.dev/internal/sim/world"
	"voxfab.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 12345, "world seed (used only for a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		slot       = flag.String("slot", "world", "save slot name")
		loadSave   = flag.Bool("load", true, "load the save slot at startup if present")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
		console    = flag.Bool("console", true, "read slash commands from stdin")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// A recipe registration conflict is fatal here, before any state exists.
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	store, err := save.NewStore(tune.SaveDir)
	if err != nil {
		logger.Fatalf("open save store: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(tune.SaveDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
	}

	w, err := world.New(world.Config{Seed: *seed, SaveSlot: *slot}, &tune, cats, logger)
	if err != nil {
		logger.Fatalf("create world: %v", err)
	}
	w.SetSaver(&indexedStore{store: store, idx: idx})

	if tune.EventLogEnabled {
		tl := persistlog.NewTickLogger(tune.SaveDir, logger)
		defer tl.Close()
		if idx != nil {
			w.SetRecorder(multiRecorder{tl, idx})
		} else {
			w.SetRecorder(tl)
		}
	} else if idx != nil {
		w.SetRecorder(idx)
	}

	if *loadSave {
		if _, err := os.Stat(filepath.Join(tune.SaveDir, *slot+".json")); err == nil {
			if doc, err := store.Load(*slot); err != nil {
				logger.Printf("startup load %q rejected: %v", *slot, err)
			} else if err := w.ImportSave(doc); err != nil {
				logger.Printf("startup load %q rejected: %v", *slot, err)
			} else {
				logger.Printf("resumed slot %q at tick %d", *slot, doc.Tick)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := ws.NewServer(w, tune, cats, *seed, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	go w.Run(ctx)

	if *console {
		go runConsole(w, logger)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")
	if res := w.RequestSave(*slot); !res.OK {
		logger.Printf("final save failed: %s", res.Message)
	}
	w.Stop()
	_ = httpSrv.Shutdown(context.Background())
}

// indexedStore is the save backend handed to the world: writes go to
// disk and, when enabled, into the sqlite index.
type indexedStore struct {
	store *save.Store
	idx   *indexdb.SQLiteIndex
}

func (s *indexedStore) Save(slot string, doc *save.Document) error {
	if err := s.store.Save(slot, doc); err != nil {
		return err
	}
	if s.idx != nil {
		s.idx.RecordSave(slot, filepath.Join(s.store.Dir(), slot+".json"), doc)
	}
	return nil
}

func (s *indexedStore) Load(slot string) (*save.Document, error) {
	return s.store.Load(slot)
}

// multiRecorder fans the per-tick record out to several sinks.
type multiRecorder []world.Recorder

func (m multiRecorder) RecordTick(tick uint64, digest string, events []protocol.EventObs) {
	for _, r := range m {
		r.RecordTick(tick, digest, events)
	}
}
