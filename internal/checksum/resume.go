package checksum

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gosha/internal/checkpoint"
	apperrors "gosha/internal/errors"
	"gosha/internal/hash"
)

// tracker keeps the checkpoint of one file in step with its engine.
type tracker struct {
	path     string
	meta     checkpoint.Meta
	interval uint64
	nextAt   uint64
	log      logrus.FieldLogger
}

func openTracker(dir, source string, info fs.FileInfo, interval int64, log logrus.FieldLogger) (*tracker, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", source, err)
	}
	path, err := checkpoint.PathFor(dir, abs)
	if err != nil {
		return nil, err
	}
	return &tracker{
		path:     path,
		meta:     checkpoint.NewMeta(abs, info),
		interval: uint64(interval),
		nextAt:   uint64(interval),
		log:      log.WithField("checkpoint", path),
	}, nil
}

// restore loads a checkpoint that still matches the source and positions f
// after the bytes it covers. Stale or unreadable checkpoints are discarded and
// hashing starts from the beginning.
func (t *tracker) restore(e *hash.Engine, f *os.File) error {
	saved, err := checkpoint.Load(t.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.log.WithError(err).Warn("ignoring unreadable checkpoint")
		}
		return nil
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w: %w", f.Name(), err, apperrors.ErrIO)
	}
	if !saved.Matches(t.meta.Path, info) {
		t.log.Info("source changed since checkpoint, starting over")
		return nil
	}
	var restored hash.Engine
	if err := restored.UnmarshalBinary(saved.State); err != nil || restored.Len() != saved.Offset {
		t.log.WithError(err).Warn("ignoring checkpoint with invalid engine state")
		return nil
	}
	if _, err := f.Seek(int64(saved.Offset), io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w: %w", f.Name(), err, apperrors.ErrIO)
	}
	*e = restored
	t.nextAt = saved.Offset + t.interval
	t.log.WithField("offset", saved.Offset).Info("resuming from checkpoint")
	return nil
}

func (t *tracker) maybeSave(e *hash.Engine) error {
	if e.Len() < t.nextAt {
		return nil
	}
	if err := t.save(e); err != nil {
		return err
	}
	t.nextAt = e.Len() + t.interval
	return nil
}

func (t *tracker) save(e *hash.Engine) error {
	state, err := e.MarshalBinary()
	if err != nil {
		return fmt.Errorf("snapshot engine: %w", err)
	}
	t.meta.Offset = e.Len()
	t.meta.State = state
	if err := checkpoint.Save(t.path, t.meta); err != nil {
		return err
	}
	t.log.WithField("offset", t.meta.Offset).Debug("saved checkpoint")
	return nil
}

func (t *tracker) finish() {
	if err := checkpoint.Remove(t.path); err != nil {
		t.log.WithError(err).Warn("could not remove checkpoint")
	}
}
