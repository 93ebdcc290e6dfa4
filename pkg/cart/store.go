package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists a single cart between sessions.
type Store interface {
	Load() (*Cart, error)
	Save(c *Cart) error
}

type MemoryStore struct {
	mu    sync.Mutex
	items []Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := New()
	c.Items = append(c.Items, s.items...)
	return c, nil
}

func (s *MemoryStore) Save(c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Item(nil), c.Items...)
	return nil
}

// FileStore keeps the cart as a JSON array of items in one file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty cart when the file does not exist. A corrupt
// file is reported, never silently replaced.
func (s *FileStore) Load() (*Cart, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	c := New()
	if err := json.Unmarshal(raw, &c.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

// Save writes through a temp file and rename so readers never see a
// partial cart.
func (s *FileStore) Save(c *Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cart: %w", err)
	}
	return nil
}
