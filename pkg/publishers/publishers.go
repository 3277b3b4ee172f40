package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// configFile is the top-level shape of the publishers file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// ConfigRegistry holds the publisher definitions loaded from a config file, in file order.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry loads the publisher registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{idx: make(map[string]int, len(file.Publishers))}
	for i, entry := range file.Publishers {
		cfg := entry.normalized()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// decodeConfigFile picks the decoder from the extension, trying YAML then JSON when there is none.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var order []func([]byte, any) error
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		order = append(order, yaml.Unmarshal)
	case ".json":
		order = append(order, json.Unmarshal)
	case "":
		order = append(order, yaml.Unmarshal, json.Unmarshal)
	}

	var errs []error
	for _, decode := range order {
		var file configFile
		if err := decode(data, &file); err != nil {
			errs = append(errs, err)
			continue
		}
		return file, nil
	}
	return configFile{}, fmt.Errorf("publishers file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
