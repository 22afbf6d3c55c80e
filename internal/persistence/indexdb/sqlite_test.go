package indexdb

import (
	"path/filepath"
	"sync"
	"testing"

	"voxfab.dev/internal/persistence/save"
	"voxfab.dev/internal/protocol"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return s
}

func TestRecordAfterCloseIsNoOp(t *testing.T) {
	s := openTestIndex(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Neither call may panic on the closed channel.
	s.RecordTick(1, "digest", nil)
	s.RecordSave("slot0", "/tmp/slot0.json", &save.Document{Version: "1", Tick: 1})

	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCloseRacesWithRecorders(t *testing.T) {
	s := openTestIndex(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev := []protocol.EventObs{{Kind: "machine_started"}}
			for tick := uint64(0); ; tick++ {
				select {
				case <-stop:
					return
				default:
				}
				s.RecordTick(tick, "d", ev)
				s.RecordSave("slot0", "p", &save.Document{
					Achievements: []save.Achievement{{ID: "first_ingot", UnlockedTick: tick}},
				})
			}
		}()
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close during writes: %v", err)
	}
	close(stop)
	wg.Wait()
}

func TestNilIndexRecordsAreNoOps(t *testing.T) {
	var s *SQLiteIndex
	s.RecordTick(1, "d", nil)
	s.RecordSave("slot0", "p", &save.Document{})
}
