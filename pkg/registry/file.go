package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk YAML shape.
type registryFile struct {
	Servers map[string]ServerConfig `yaml:"servers"`
}

// LoadFile reads a registry from a YAML file. A missing file yields an empty
// store so that first boot requires no setup.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	store := NewStore()
	for name, cfg := range file.Servers {
		if err := store.Set(name, cfg); err != nil {
			return nil, fmt.Errorf("registry %s: %w", path, err)
		}
	}
	return store, nil
}

// SaveFile writes the registry to a YAML file. The write goes through a
// temporary file in the same directory followed by a rename, so a crash
// cannot leave a truncated registry behind.
func (s *Store) SaveFile(path string) error {
	data, err := yaml.Marshal(registryFile{Servers: s.All()})
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing registry %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp registry file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing registry %s: %w", path, err)
	}
	return nil
}
