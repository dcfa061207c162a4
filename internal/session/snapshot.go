package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "rclookup"
	// FallbackDir is the directory for file-based snapshots (when keyring fails)
	FallbackDir = ".rclookup/sessions"

	manifestKey = "_manifest"
)

// Snapshot is the persisted cookie context of a warm session
type Snapshot struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Cookie is a stored name/value pair scoped to the snapshot URL
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Persister stores session snapshots between runs
type Persister interface {
	Save(snap *Snapshot) error
	Load(name string) (*Snapshot, error)
	Delete(name string) error
	List() ([]string, error)
}

// KeyringPersister stores snapshots in the OS keyring, falling back to
// JSON files where no keyring is available (Codespaces, CI, headless hosts)
type KeyringPersister struct {
	dir string

	once     sync.Once
	fileOnly bool
}

// NewKeyringPersister creates a persister; dir overrides ~/.rclookup/sessions
func NewKeyringPersister(dir string) *KeyringPersister {
	return &KeyringPersister{dir: dir}
}

// NewFilePersister creates a persister that never touches the keyring
func NewFilePersister(dir string) *KeyringPersister {
	p := &KeyringPersister{dir: dir, fileOnly: true}
	p.once.Do(func() {})
	return p
}

func (p *KeyringPersister) useFiles() bool {
	p.once.Do(func() {
		if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			p.fileOnly = true
			return
		}
		testKey := "_test_keyring_access_"
		if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
			p.fileOnly = true
			return
		}
		_ = keyring.Delete(KeyringService, testKey)
	})
	return p.fileOnly
}

func (p *KeyringPersister) sessionDir() (string, error) {
	dir := p.dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, FallbackDir)
	}
	return dir, os.MkdirAll(dir, 0700)
}

func (p *KeyringPersister) sessionPath(name string) (string, error) {
	dir, err := p.sessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// Save writes a snapshot
func (p *KeyringPersister) Save(snap *Snapshot) error {
	if snap.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if p.useFiles() {
		path, err := p.sessionPath(snap.Name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, snap.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return p.updateManifest(snap.Name, true)
}

// Load reads a snapshot; expired snapshots are reported as an error
func (p *KeyringPersister) Load(name string) (*Snapshot, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	var data string
	if p.useFiles() {
		path, err := p.sessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
		data = string(raw)
	} else {
		var err error
		data, err = keyring.Get(KeyringService, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	if !snap.ExpiresAt.IsZero() && time.Now().After(snap.ExpiresAt) {
		return nil, fmt.Errorf("session %q expired", name)
	}

	return &snap, nil
}

// Delete removes a snapshot; deleting a missing snapshot is not an error
func (p *KeyringPersister) Delete(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if p.useFiles() {
		path, err := p.sessionPath(name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return p.updateManifest(name, false)
}

// List returns the names of stored snapshots
func (p *KeyringPersister) List() ([]string, error) {
	if p.useFiles() {
		dir, err := p.sessionDir()
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}
		names := []string{}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
		return names, nil
	}

	manifest, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		// No manifest exists yet
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(manifest), &names); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	return names, nil
}

func (p *KeyringPersister) updateManifest(name string, add bool) error {
	names, _ := p.List()

	kept := names[:0]
	for _, n := range names {
		if n != name {
			kept = append(kept, n)
		}
	}
	if add {
		kept = append(kept, name)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}
