package rosbag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const metadataFileName = "metadata.yaml"

// Metadata is the subset of a rosbag2 metadata.yaml the exporter needs to
// locate and validate the storage files of a bag directory.
type Metadata struct {
	Info struct {
		Version           int      `yaml:"version"`
		StorageIdentifier string   `yaml:"storage_identifier"`
		RelativeFilePaths []string `yaml:"relative_file_paths"`
		MessageCount      int      `yaml:"message_count"`
	} `yaml:"rosbag2_bagfile_information"`
}

// ReadMetadata parses the metadata.yaml of a bag directory.
func ReadMetadata(dir string) (*Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s in %s", ErrUnsupportedStorage, metadataFileName, dir)
		}
		return nil, err
	}
	var meta Metadata
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrUnsupportedStorage, metadataFileName, err)
	}
	return &meta, nil
}

// StorageFiles validates the metadata and resolves its relative storage
// file paths against dir.
func (m *Metadata) StorageFiles(dir string) ([]string, error) {
	if m.Info.StorageIdentifier != storageIdentifier {
		return nil, fmt.Errorf(
			"%w: storage identifier '%s'", ErrUnsupportedStorage, m.Info.StorageIdentifier,
		)
	}
	if len(m.Info.RelativeFilePaths) == 0 {
		return nil, fmt.Errorf("%w: metadata lists no storage files", ErrUnsupportedStorage)
	}
	paths := make([]string, len(m.Info.RelativeFilePaths))
	for i, rel := range m.Info.RelativeFilePaths {
		paths[i] = filepath.Join(dir, rel)
	}
	return paths, nil
}
