// Package store is the schema graph registry: the concrete provider
// behind the getSchema(databaseId) contract. Graphs are kept as YAML
// files in a directory, keyed by generated database ids. The registry
// persists schemas only; validation results are never stored.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/safequery/safequery/internal/schema"
)

// ErrNotFound is returned by Load when no schema exists for the id.
var ErrNotFound = errors.New("schema not found")

// Store is a directory-backed schema registry.
type Store struct {
	dir string
}

// Open creates the registry directory if needed and returns the store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewDatabaseID generates a fresh database identifier.
// Uses github.com/google/uuid for RFC 4122 compliant UUIDs; v7 ids sort
// by creation time.
func NewDatabaseID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Save verifies the graph and writes it under a fresh database id,
// which is returned.
func (s *Store) Save(g *schema.Graph) (string, error) {
	if err := schema.Verify(g); err != nil {
		return "", err
	}
	id := NewDatabaseID()
	data, err := yaml.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	if err := os.WriteFile(s.path(id), data, 0o644); err != nil {
		return "", fmt.Errorf("write schema %s: %w", id, err)
	}
	return id, nil
}

// Load reads and verifies the schema graph for a database id.
// Returns ErrNotFound when the id is unknown.
func (s *Store) Load(id string) (*schema.Graph, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid database id %q: %w", id, err)
	}
	g, err := schema.Load(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return g, nil
}

// List returns every stored database id, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read registry dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a stored schema. Deleting an unknown id returns
// ErrNotFound.
func (s *Store) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid database id %q: %w", id, err)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database %s: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}
