// Package manifest writes the optional run summary the --timing flag
// persists next to the output, as a plain yaml.v3 marshal/unmarshal
// struct.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest summarizes one finished run: the settings that produced it
// and the counts/duration it took.
type Manifest struct {
	Input      string        `yaml:"input"`
	Output     string        `yaml:"output"`
	Zoom       int           `yaml:"zoom"`
	Border     float64       `yaml:"border"`
	Nodes      int64         `yaml:"nodes"`
	Ways       int64         `yaml:"ways"`
	Relations  int64         `yaml:"relations"`
	Tiles      int           `yaml:"tiles"`
	Duration   time.Duration `yaml:"duration"`
	FinishedAt time.Time     `yaml:"finished_at"`
}

// Path returns the manifest file path for a run's output path: the
// output's own name with a ".manifest.yaml" suffix, alongside it.
func Path(outputPath string) string {
	return outputPath + ".manifest.yaml"
}

// Write marshals m as YAML to path, creating its directory if needed.
func Write(path string, m Manifest) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("manifest: creating %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshalling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: writing %s: %w", path, err)
	}
	return nil
}
