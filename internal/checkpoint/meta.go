// Package checkpoint persists partially hashed files so a long hash can
// resume after an interruption instead of starting over.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Version is the checkpoint schema version.
const Version uint16 = 1

// ErrVersion is returned for checkpoints written with another schema.
var ErrVersion = errors.New("unsupported checkpoint version")

// Meta records how far hashing of one source file got.
type Meta struct {
	Version uint16 `cbor:"version"`
	Path    string `cbor:"path"`
	Size    int64  `cbor:"size"`
	ModTime int64  `cbor:"mod_time"`
	Offset  uint64 `cbor:"offset"`
	// State is the marshaled engine after Offset bytes.
	State []byte `cbor:"state"`
}

// NewMeta describes a source file before any of it is hashed.
func NewMeta(path string, info fs.FileInfo) Meta {
	return Meta{
		Version: Version,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
	}
}

// Matches reports whether the source file is unchanged since the checkpoint
// was taken.
func (m Meta) Matches(path string, info fs.FileInfo) bool {
	return m.Path == path && m.Size == info.Size() && m.ModTime == info.ModTime().UnixNano() &&
		m.Offset <= uint64(info.Size())
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("checkpoint: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("checkpoint: CBOR decoder initialization failed: " + err.Error())
	}
}

// Load reads a checkpoint file.
func Load(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var meta Meta
	if err := decMode.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	if meta.Version != Version {
		return Meta{}, fmt.Errorf("checkpoint version %d: %w", meta.Version, ErrVersion)
	}
	return meta, nil
}

// Save writes meta to path atomically: readers see either the previous
// checkpoint or the new one, never a torn write.
func Save(path string, meta Meta) error {
	meta.Version = Version
	data, err := encMode.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gosha-ckpt-*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write checkpoint temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync checkpoint temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename checkpoint temp file: %w", err)
	}
	return nil
}

// Remove deletes a checkpoint. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
