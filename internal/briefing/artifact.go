package briefing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bryan-buckman/iantel/internal/model"
)

// ErrArtifactMissing is returned when no briefing has been written yet.
var ErrArtifactMissing = errors.New("briefing artifact not available")

// Encode renders doc as pretty-printed UTF-8 JSON.
func Encode(doc *model.BriefingDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode briefing: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteArtifact writes doc to path atomically: the data goes to a temporary
// file in the same directory which is then renamed over path. On failure the
// previous artifact is left untouched.
func WriteArtifact(path string, doc *model.BriefingDocument) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// ReadArtifact returns the raw bytes of the artifact at path.
func ReadArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArtifactMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read briefing: %w", err)
	}
	return data, nil
}

// LoadArtifact reads and decodes the artifact at path.
func LoadArtifact(path string) (*model.BriefingDocument, error) {
	data, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	var doc model.BriefingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode briefing: %w", err)
	}
	return &doc, nil
}
