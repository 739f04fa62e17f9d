package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Bundle is a diagnostics snapshot. It never carries record contents.
type Bundle struct {
	GeneratedAt string         `json:"generated_at"`
	GOOS        string         `json:"goos"`
	GOARCH      string         `json:"goarch"`
	Version     map[string]any `json:"version,omitempty"`
	Catalog     map[string]any `json:"catalog,omitempty"`
	Checks      []Check        `json:"checks"`
	Notes       []string       `json:"notes,omitempty"`
}

func NewBundle() Bundle {
	return Bundle{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339Nano),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		Checks:      []Check{},
	}
}

func (b *Bundle) Pass(name, message string) {
	b.Checks = append(b.Checks, Check{Name: name, OK: true, Message: message})
}

func (b *Bundle) Fail(name string, err error) {
	b.Checks = append(b.Checks, Check{Name: name, OK: false, Message: err.Error()})
}

func (b Bundle) Healthy() bool {
	for _, check := range b.Checks {
		if !check.OK {
			return false
		}
	}
	return true
}

// WriteBundle replaces outputPath with the indented JSON bundle. The file is
// written next to its destination and renamed, so a reader never sees a
// partial bundle.
func WriteBundle(outputPath string, bundle Bundle) error {
	if outputPath == "" {
		return fmt.Errorf("write debug bundle: output path is required")
	}
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("write debug bundle: create output directory: %w", err)
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("write debug bundle: marshal json: %w", err)
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(dir, ".doctor-*.json")
	if err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write debug bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	return nil
}
