package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Store is the flat key-value settings file. Environment variables with the
// SAVEMANAGER_ prefix override file values for the running process but are
// never written back.
type Store struct {
	mu   sync.RWMutex
	path string
	file *koanf.Koanf // defaults + file, what Save persists
	k    *koanf.Koanf // file + env, what Get reads
}

// Load reads the settings at path. A missing file is created with Defaults.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	fileK := koanf.New(".")
	for key, val := range Defaults() {
		if err := fileK.Set(key, val); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		s.file = fileK
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := fileK.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", path, err)
		}
		s.file = fileK
	}

	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// reload layers the environment over the file values.
func (s *Store) reload() error {
	k := koanf.New(".")
	if err := k.Merge(s.file); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	// SAVEMANAGER_LOG_LEVEL -> log_level
	transform := func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	s.k = k
	return nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return "", false
	}
	return s.k.String(key), true
}

// String returns the value for key or def when unset or empty.
func (s *Store) String(key, def string) string {
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return def
}

func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Set stores value under key. Values that parse as booleans are kept as
// booleans so the file stays readable.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v any = value
	if b, err := strconv.ParseBool(value); err == nil {
		v = b
	}
	if err := s.file.Set(key, v); err != nil {
		return err
	}
	return s.reload()
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.k.Keys()
	sort.Strings(keys)
	return keys
}

// Save writes the file values back through a temp file and rename.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Store) save() error {
	data, err := yaml.Marshal(s.file.Raw())
	if err != nil {
		return fmt.Errorf("marshalling yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
