// Package checksum feeds strings, readers and files through SHA-256 engines.
//
// The engine in package hash only ever sees byte buffers; this package owns
// the reading, the worker pool, progress output and checkpointing.
package checksum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gosha/internal/config"
	apperrors "gosha/internal/errors"
	"gosha/internal/hash"
	"gosha/internal/logging"
	"gosha/internal/progress"
)

// StdinName is the path that stands for standard input.
const StdinName = "-"

// Options configures how inputs are read and hashed.
type Options struct {
	// ChunkSize is the size of each buffer handed to the engine.
	ChunkSize int
	// Workers bounds how many files are hashed at once.
	Workers int
	// CheckpointDir enables resumable file hashing when non-empty.
	CheckpointDir string
	// CheckpointInterval is the number of bytes between checkpoints.
	CheckpointInterval int64
	// Progress receives progress lines; nil disables them.
	Progress io.Writer
	// Stdin is read for the path "-".
	Stdin  io.Reader
	Logger logrus.FieldLogger

	progressMu *sync.Mutex
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = config.DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = config.DefaultCheckpointInterval
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.progressMu == nil {
		o.progressMu = &sync.Mutex{}
	}
	return o
}

// Result is the digest of one input.
type Result struct {
	Name   string
	Digest hash.Sum
	// Size is the total number of bytes hashed.
	Size uint64
	// Resumed is the number of bytes restored from a checkpoint instead of read.
	Resumed uint64
}

// String hashes a literal string.
func String(s string) hash.Sum {
	return hash.Sum256([]byte(s))
}

// Reader hashes everything r yields. Cancelling ctx stops between chunks.
func Reader(ctx context.Context, name string, r io.Reader, opts Options) (Result, error) {
	return SizedReader(ctx, name, r, 0, opts)
}

// SizedReader is Reader for a stream whose length is known up front; size
// only feeds progress output and may be 0 when unknown.
func SizedReader(ctx context.Context, name string, r io.Reader, size uint64, opts Options) (Result, error) {
	opts = opts.withDefaults()
	e := hash.New()
	reporter := opts.reporter(name, size)
	if err := absorb(ctx, e, r, make([]byte, opts.ChunkSize), reporter, nil); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	if reporter != nil {
		reporter.Done(e.Len())
	}
	return Result{Name: name, Digest: e.Finalize(), Size: e.Len()}, nil
}

// File hashes the file at path, or standard input for "-".
func File(ctx context.Context, path string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if path == StdinName {
		return Reader(ctx, StdinName, opts.Stdin, opts)
	}
	log := opts.Logger.WithField("file", path)

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w: %w", path, err, apperrors.ErrIO)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w: %w", path, err, apperrors.ErrIO)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%s: is a directory: %w", path, apperrors.ErrIO)
	}

	e := hash.New()
	var ckpt *tracker
	if opts.CheckpointDir != "" {
		ckpt, err = openTracker(opts.CheckpointDir, path, info, opts.CheckpointInterval, log)
		if err != nil {
			return Result{}, err
		}
		if err := ckpt.restore(e, f); err != nil {
			return Result{}, err
		}
	}
	resumed := e.Len()

	reporter := opts.reporter(path, uint64(info.Size()))
	var onChunk func() error
	if ckpt != nil {
		onChunk = func() error { return ckpt.maybeSave(e) }
	}
	if err := absorb(ctx, e, f, make([]byte, opts.ChunkSize), reporter, onChunk); err != nil {
		if ckpt != nil && ctx.Err() != nil {
			if saveErr := ckpt.save(e); saveErr != nil {
				log.WithError(saveErr).Warn("could not save checkpoint on interrupt")
			}
		}
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	if ckpt != nil {
		ckpt.finish()
	}
	if reporter != nil {
		reporter.Done(e.Len())
	}

	sum := e.Finalize()
	log.WithFields(logrus.Fields{"bytes": e.Len(), "resumed": resumed}).Debug("hashed file")
	return Result{Name: path, Digest: sum, Size: e.Len(), Resumed: resumed}, nil
}

// Files hashes paths with up to opts.Workers files in flight, one engine per
// file. Results are returned in input order. The first failure cancels the
// remaining work.
func Files(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	opts = opts.withDefaults()
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := File(ctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o Options) reporter(name string, total uint64) *progress.Reporter {
	if o.Progress == nil {
		return nil
	}
	return progress.NewReporter(o.Progress, o.progressMu, name, total)
}

func absorb(ctx context.Context, e *hash.Engine, r io.Reader, buf []byte, reporter *progress.Reporter, onChunk func() error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			e.Update(buf[:n])
			if reporter != nil {
				reporter.Update(e.Len())
			}
			if onChunk != nil {
				if err := onChunk(); err != nil {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read: %w: %w", readErr, apperrors.ErrIO)
		}
	}
}
