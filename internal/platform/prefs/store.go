package prefs

import (
	"os"
	"path/filepath"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/pitchside/matchday/internal/platform/logging"
)

// Store persists small client preferences to a local JSON file. Every
// operation is best effort: a missing or unwritable file never fails the
// caller, it only logs.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

type preferences struct {
	PlaybackSpeed int `json:"playback_speed"`
}

func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{path: path, logger: logger}
}

// DefaultPath places the preference file under the OS user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "matchday", "prefs.json")
	}
	return filepath.Join(dir, "matchday", "prefs.json")
}

// PlaybackSpeed returns the stored speed multiplier, if any.
func (s *Store) PlaybackSpeed() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.load()
	if !ok || current.PlaybackSpeed < 1 || current.PlaybackSpeed > 3 {
		return 0, false
	}
	return current.PlaybackSpeed, true
}

// SetPlaybackSpeed stores the speed multiplier.
func (s *Store) SetPlaybackSpeed(speed int) {
	if speed < 1 || speed > 3 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.load()
	current.PlaybackSpeed = speed
	s.save(current)
}

func (s *Store) load() (preferences, bool) {
	var out preferences
	if s.path == "" {
		return out, false
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return out, false
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("preference file is corrupt, ignoring", "path", s.path, "error", err)
		return preferences{}, false
	}

	return out, true
}

func (s *Store) save(current preferences) {
	if s.path == "" {
		return
	}

	raw, err := sonic.Marshal(current)
	if err != nil {
		s.logger.Warn("encode preferences failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("create preference dir failed", "path", s.path, "error", err)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		s.logger.Warn("write preferences failed", "path", s.path, "error", err)
	}
}
