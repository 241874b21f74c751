package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// FileName is the metadata store file kept under componentsDir.
const FileName = ".wmx-installed.yaml"

const fileHeader = "# Installed WMX components. Managed by wmx; do not edit by hand.\n"

// Store holds the install records for one project. Mutations are
// serialized; reads may run concurrently with a writer and observe the
// last fully-committed state.
type Store struct {
	path string

	mu      sync.RWMutex
	ids     []string
	records map[string]wmx.InstallRecord
}

// PathFor returns the store file path for a project target.
func PathFor(target wmx.ProjectTarget) string {
	return filepath.Join(target.ComponentsPath(), FileName)
}

// Open reads the store file at path into memory. A missing file yields an
// empty store; unparseable content fails with CorruptState and is never
// silently repaired.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]wmx.InstallRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &wmx.StoreError{Kind: wmx.KindCorruptState, Err: fmt.Errorf("reading %s: %w", path, err)}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &wmx.StoreError{Kind: wmx.KindCorruptState, Err: fmt.Errorf("parsing %s: %w", path, err)}
	}
	if len(doc.Content) == 0 {
		return s, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &wmx.StoreError{
			Kind: wmx.KindCorruptState,
			Err:  fmt.Errorf("%s: expected a mapping of component ids to records", path),
		}
	}

	// Mapping nodes hold key/value pairs in document order, which is how
	// insertion order survives a reload.
	for i := 0; i+1 < len(root.Content); i += 2 {
		id := root.Content[i].Value
		var rec wmx.InstallRecord
		if err := root.Content[i+1].Decode(&rec); err != nil {
			return nil, &wmx.StoreError{
				Kind: wmx.KindCorruptState,
				Err:  fmt.Errorf("%s: record %q: %w", path, id, err),
			}
		}
		if _, dup := s.records[id]; dup {
			return nil, &wmx.StoreError{
				Kind: wmx.KindCorruptState,
				Err:  fmt.Errorf("%s: duplicate record for %q", path, id),
			}
		}
		s.ids = append(s.ids, id)
		s.records[id] = rec
	}

	return s, nil
}

// Get returns the record for a component id.
func (s *Store) Get(componentID string) (wmx.InstallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[componentID]
	return rec, ok
}

// List returns all records in insertion order of their component ids.
func (s *Store) List() []wmx.InstallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wmx.InstallRecord, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.records[id])
	}
	return out
}

// Upsert adds or replaces the record for its component id and persists the
// full store atomically. Replacing keeps the id's iteration position. A
// persist failure leaves both the file and the in-memory state untouched.
func (s *Store) Upsert(rec wmx.InstallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.records[rec.ComponentID]

	ids := s.ids
	if !exists {
		ids = append(append([]string{}, s.ids...), rec.ComponentID)
	}

	prev := s.records[rec.ComponentID]
	s.records[rec.ComponentID] = rec

	if err := s.persist(ids); err != nil {
		// Roll back the in-memory mutation.
		if exists {
			s.records[rec.ComponentID] = prev
		} else {
			delete(s.records, rec.ComponentID)
		}
		return err
	}

	s.ids = ids
	log.WithFields(log.Fields{
		"component": rec.ComponentID,
		"version":   rec.Version,
	}).Debug("recorded install")
	return nil
}

// persist writes the whole store to a temp file and atomically replaces
// the store file. Must be called with mu held.
func (s *Store) persist(ids []string) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		rec := s.records[id]
		var key, val yaml.Node
		key.SetString(id)
		if err := val.Encode(rec); err != nil {
			return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("encoding record %q: %w", id, err)}
		}
		root.Content = append(root.Content, &key, &val)
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("encoding store: %w", err)}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("creating %s: %w", dir, err)}
	}

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpName := tmp.Name()

	_, err = tmp.WriteString(fileHeader)
	if err == nil {
		_, err = tmp.Write(data)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("writing %s: %w", tmpName, err)}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &wmx.StoreError{Kind: wmx.KindWriteFailure, Err: fmt.Errorf("replacing %s: %w", s.path, err)}
	}
	return nil
}
