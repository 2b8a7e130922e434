package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ManifestFile is the manifest every plugin directory carries.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest is returned for a manifest that cannot describe a runnable plugin.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// Binding is a plugin action triggered by a word.
type Binding struct {
	Plugin *Plugin
	Action string
}

// Manager discovers plugins and indexes their word bindings.
type Manager struct {
	pluginDir string
	logger    *slog.Logger

	mu      sync.RWMutex
	plugins []*Plugin // sorted by name
	byName  map[string]*Plugin
	byWord  map[string][]Binding
}

// NewManager creates a new plugin Manager with the given plugin directory.
func NewManager(pluginDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pluginDir: pluginDir,
		logger:    logger,
		byName:    make(map[string]*Plugin),
		byWord:    make(map[string][]Binding),
	}
}

// Discover replaces the known plugins with those found in the plugin
// directory, one per subdirectory holding a manifest. Plugins that cannot
// be loaded are logged and skipped. A missing directory is not an error.
func (m *Manager) Discover() error {
	var found []*Plugin

	if m.pluginDir != "" {
		entries, err := os.ReadDir(m.pluginDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			p, err := m.load(filepath.Join(m.pluginDir, entry.Name()))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				m.logger.Warn("skipping plugin", "dir", entry.Name(), "error", err)
				continue
			}
			found = append(found, p)
		}
	}

	slices.SortFunc(found, func(a, b *Plugin) int {
		return strings.Compare(a.Manifest.Name, b.Manifest.Name)
	})

	byName := make(map[string]*Plugin, len(found))
	byWord := make(map[string][]Binding)
	for _, p := range found {
		byName[p.Manifest.Name] = p
		for word, action := range p.Manifest.Bindings {
			byWord[word] = append(byWord[word], Binding{Plugin: p, Action: action})
		}
		m.logger.Info("plugin discovered", "plugin", p.Manifest.Name, "bindings", len(p.Manifest.Bindings))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = found
	m.byName = byName
	m.byWord = byWord
	return nil
}

// load reads the manifest in dir. Bindings to actions the manifest does not
// declare are dropped.
func (m *Manager) load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, fmt.Errorf("%w: name and executable are required", ErrInvalidManifest)
	}

	for word, action := range manifest.Bindings {
		if !slices.Contains(manifest.Actions, action) {
			m.logger.Warn("dropping binding to undeclared action",
				"plugin", manifest.Name, "word", word, "action", action)
			delete(manifest.Bindings, word)
		}
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byName[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.plugins)
}

// Bound returns the actions bound to word, ordered by plugin name.
func (m *Manager) Bound(word string) []Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.byWord[word])
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
