// Package fetch downloads a URL over HTTP and hashes the body as it arrives.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gosha/internal/checksum"
	apperrors "gosha/internal/errors"
	"gosha/internal/hash"
	"gosha/internal/logging"
)

const (
	// DefaultMaxRedirects bounds how many redirects a download follows.
	DefaultMaxRedirects = 10
	// DefaultUserAgent is sent when Options.UserAgent is empty.
	DefaultUserAgent = "gosha"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds the limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// Options configures a download.
type Options struct {
	// Client performs the requests; http.DefaultClient when nil. Its
	// redirect policy is replaced.
	Client *http.Client
	// Output receives the body when non-empty. The file only appears once
	// the whole body was read and, with Expect set, matched.
	Output string
	// Expect is the digest the body must have.
	Expect       *hash.Sum
	MaxRedirects int
	UserAgent    string
	// Checksum configures chunking, progress and logging of the body hash.
	Checksum checksum.Options
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Checksum.Logger == nil {
		o.Checksum.Logger = logging.Discard()
	}
	return o
}

// client copies the configured client with a redirect policy that follows
// 301, 302, 303, 307 and 308 responses up to MaxRedirects times.
func (o Options) client(log logrus.FieldLogger) *http.Client {
	c := *o.Client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > o.MaxRedirects {
			return fmt.Errorf("stopped after %d redirects: %w", o.MaxRedirects, ErrTooManyRedirects)
		}
		fields := logrus.Fields{"location": req.URL.String()}
		if req.Response != nil {
			fields["status"] = req.Response.StatusCode
		}
		log.WithFields(fields).Info("following redirect")
		return nil
	}
	return &c
}

// URL downloads rawURL and returns the digest of its body. Any final status
// other than 200 OK is an error. The result is named after Output when set,
// otherwise after rawURL.
func URL(ctx context.Context, rawURL string, opts Options) (checksum.Result, error) {
	opts = opts.withDefaults()
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return checksum.Result{}, fmt.Errorf("invalid URL %q: only http and https are supported: %w", rawURL, apperrors.ErrUsage)
	}
	log := opts.Checksum.Logger.WithField("url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return checksum.Result{}, fmt.Errorf("build request: %w: %w", err, apperrors.ErrUsage)
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := opts.client(log).Do(req)
	if err != nil {
		return checksum.Result{}, fmt.Errorf("GET %s: %w: %w", rawURL, err, apperrors.ErrIO)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return checksum.Result{}, fmt.Errorf("GET %s: server returned %q: %w", resp.Request.URL, resp.Status, apperrors.ErrIO)
	}
	log.WithField("size", resp.ContentLength).Debug("downloading")

	name := rawURL
	var body io.Reader = resp.Body
	var out *partialFile
	if opts.Output != "" {
		out, err = createPartial(opts.Output)
		if err != nil {
			return checksum.Result{}, err
		}
		defer out.discard()
		body = io.TeeReader(resp.Body, out.f)
		name = opts.Output
	}

	var size uint64
	if resp.ContentLength > 0 {
		size = uint64(resp.ContentLength)
	}
	res, err := checksum.SizedReader(ctx, name, body, size, opts.Checksum)
	if err != nil {
		return checksum.Result{}, err
	}
	if opts.Expect != nil && res.Digest != *opts.Expect {
		return res, fmt.Errorf("%s: digest %s does not match expected %s: %w", name, res.Digest, *opts.Expect, apperrors.ErrMismatch)
	}
	if out != nil {
		if err := out.commit(); err != nil {
			return checksum.Result{}, err
		}
		log.WithField("output", opts.Output).Info("saved download")
	}
	return res, nil
}

// partialFile is a download in progress, written next to its destination and
// renamed into place on commit.
type partialFile struct {
	f    *os.File
	path string
	done bool
}

func createPartial(path string) (*partialFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w: %w", path, err, apperrors.ErrIO)
	}
	return &partialFile{f: f, path: path}, nil
}

func (p *partialFile) commit() error {
	if err := p.f.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w: %w", p.f.Name(), err, apperrors.ErrIO)
	}
	if err := p.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w: %w", p.f.Name(), err, apperrors.ErrIO)
	}
	if err := p.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %w", p.f.Name(), err, apperrors.ErrIO)
	}
	if err := os.Rename(p.f.Name(), p.path); err != nil {
		return fmt.Errorf("rename %s: %w: %w", p.f.Name(), err, apperrors.ErrIO)
	}
	p.done = true
	return nil
}

func (p *partialFile) discard() {
	if p.done {
		return
	}
	_ = p.f.Close()
	_ = os.Remove(p.f.Name())
}
