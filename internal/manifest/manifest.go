// Package manifest records what a build emitted.
package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
)

// Manifest lists every file written by one build.
type Manifest struct {
	BuildID string `json:"buildId"`
	Mode    string `json:"mode"`
	// Files maps a logical name (bundle or source name plus extension) to its public URL.
	Files map[string]string `json:"files"`
	// Entrypoints are the initial bundles in document order, relative to the output directory.
	Entrypoints []string `json:"entrypoints"`
	// Checksums maps each output path to its CRC-64/NVME checksum.
	Checksums map[string]string `json:"checksums"`
}

// New starts a manifest for a fresh build.
func New(mode string) *Manifest {
	return &Manifest{
		BuildID:     uuid.NewString(),
		Mode:        mode,
		Files:       make(map[string]string),
		Entrypoints: []string{},
		Checksums:   make(map[string]string),
	}
}

// Add records an emitted file. Later additions under the same name get the
// output path appended to keep names unique.
func (m *Manifest) Add(name, path, url string, content []byte) {
	if _, exists := m.Files[name]; exists {
		name = name + "#" + path
	}
	m.Files[name] = url
	m.Checksums[path] = Checksum(content)
}

// AddEntrypoint appends an initial bundle path.
func (m *Manifest) AddEntrypoint(path string) {
	m.Entrypoints = append(m.Entrypoints, path)
}

// Paths returns the recorded output paths in lexical order.
func (m *Manifest) Paths() []string {
	return slices.Sorted(maps.Keys(m.Checksums))
}

func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Parse decodes a manifest written by Marshal.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Checksum returns the hex CRC-64/NVME of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", crc64nvme.Checksum(data))
}
