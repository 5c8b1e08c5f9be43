package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"slot-editor/internal/slots"
)

var (
	// ErrLotNotFound is returned for a lot with no saved slots.
	ErrLotNotFound = errors.New("lot not found")
	// ErrInvalidLotID is returned for ids that are empty or contain
	// characters other than letters, digits, '-' and '_'.
	ErrInvalidLotID = errors.New("invalid lot id")
)

var lotIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidLotID reports whether id can name a lot.
func ValidLotID(id string) bool {
	return lotIDPattern.MatchString(id)
}

// Store keeps the saved slots of every lot. When dir is set each lot is
// also written to dir/lot_<id>.json and reloaded on start.
type Store struct {
	mu     sync.RWMutex
	lots   map[string][]slots.Labeled
	dir    string
	logger *slog.Logger
}

// NewStore creates a store, loading previously saved lots from dir.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{lots: make(map[string][]slots.Labeled), dir: dir, logger: logger}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "lot_*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "lot_"), ".json")
		if !ValidLotID(id) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var labeled []slots.Labeled
		if err := json.Unmarshal(data, &labeled); err != nil {
			logger.Warn("skipping unreadable lot file", "path", path, slog.Any("err", err))
			continue
		}
		s.lots[id] = labeled
	}
	logger.Info("lots loaded", "dir", dir, "count", len(s.lots))
	return s, nil
}

// Replace discards every slot of lotID and stores polys as Slot-1..N.
func (s *Store) Replace(lotID string, polys []slots.Polygon) error {
	if !ValidLotID(lotID) {
		return fmt.Errorf("%w: %q", ErrInvalidLotID, lotID)
	}
	labeled := slots.LabelAll(polys)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		data, err := json.MarshalIndent(labeled, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(s.dir, "lot_"+lotID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write lot %s: %w", lotID, err)
		}
	}
	s.lots[lotID] = labeled
	return nil
}

// Get returns the saved slots of lotID.
func (s *Store) Get(lotID string) ([]slots.Labeled, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labeled, ok := s.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLotNotFound, lotID)
	}
	out := make([]slots.Labeled, len(labeled))
	copy(out, labeled)
	return out, nil
}

// Lots returns every known lot id, sorted.
func (s *Store) Lots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.lots))
	for id := range s.lots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SlotCount returns the number of slots across all lots.
func (s *Store) SlotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.lots {
		n += len(l)
	}
	return n
}

// LotCount returns the number of lots with saved slots.
func (s *Store) LotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lots)
}
