package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/tiiuae/rosbag-data-exporter/internal/rosbag"
)

func writeBatch(w io.Writer, format formatValue, batch *rosbag.Batch) error {
	switch format {
	case formatJSONL:
		enc := json.NewEncoder(w)
		for _, rec := range batch.Records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(batch.Records); err != nil {
			return err
		}
		return enc.Close()
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"topic", "data"}); err != nil {
			return err
		}
		for _, rec := range batch.Records {
			if err := cw.Write([]string{rec.Topic, rec.Data}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("unknown artifact format '%s'", format)
}

// artifactPath maps a bag path to the artifact file it is exported to.
func artifactPath(outputDir, bagPath string, format formatValue, mode compressionMode) string {
	base := filepath.Base(bagPath)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	name := base + "." + string(format)
	if mode == compressionXZ {
		name += ".xz"
	}
	return filepath.Join(outputDir, name)
}

// writeArtifact exports a batch into outputDir and returns the artifact
// path.
func writeArtifact(
	outputDir, bagPath string,
	format formatValue,
	mode compressionMode,
	batch *rosbag.Batch,
) (path string, err error) {
	if err = os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path = artifactPath(outputDir, bagPath, format, mode)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact: %w", err)
	}
	defer onErr(&err, func() error { return os.Remove(f.Name()) })
	var w io.Writer = f
	var xzw *xz.Writer
	if mode == compressionXZ {
		if xzw, err = xz.NewWriter(f); err != nil {
			f.Close()
			return "", err
		}
		w = xzw
	}
	if err = writeBatch(w, format, batch); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if xzw != nil {
		if err = xzw.Close(); err != nil {
			f.Close()
			return "", err
		}
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
