package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "gosha/internal/errors"
	"gosha/internal/hash"
)

var payload = []byte(strings.Repeat("gosha download payload\n", 500))

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/file.bin", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "gosha-test" {
			http.Error(w, "unexpected user agent", http.StatusBadRequest)
			return
		}
		_, _ = w.Write(payload)
	})
	for _, code := range []int{301, 302, 303, 307, 308} {
		code := code
		mux.HandleFunc(fmt.Sprintf("/redirect/%d", code), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/file.bin", code)
		})
	}
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect/302", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/missing", http.NotFound)
	mux.HandleFunc("/no-content", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func options() Options {
	return Options{UserAgent: "gosha-test"}
}

func TestURLHashesBody(t *testing.T) {
	srv := newServer(t)
	res, err := URL(context.Background(), srv.URL+"/file.bin", options())
	require.NoError(t, err)
	require.Equal(t, hash.Sum(sha256.Sum256(payload)), res.Digest)
	require.Equal(t, uint64(len(payload)), res.Size)
	require.Equal(t, srv.URL+"/file.bin", res.Name)
}

func TestURLFollowsRedirects(t *testing.T) {
	srv := newServer(t)
	want := hash.Sum(sha256.Sum256(payload))
	for _, path := range []string{"/redirect/301", "/redirect/302", "/redirect/303", "/redirect/307", "/redirect/308", "/hop"} {
		res, err := URL(context.Background(), srv.URL+path, options())
		require.NoError(t, err, path)
		require.Equal(t, want, res.Digest, path)
	}
}

func TestURLStopsRedirectLoops(t *testing.T) {
	srv := newServer(t)
	opts := options()
	opts.MaxRedirects = 3
	_, err := URL(context.Background(), srv.URL+"/loop", opts)
	require.ErrorIs(t, err, ErrTooManyRedirects)
	require.ErrorIs(t, err, apperrors.ErrIO)
}

func TestURLRejectsNonOKStatus(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	for _, path := range []string{"/missing", "/no-content"} {
		opts := options()
		opts.Output = filepath.Join(dir, "out.bin")
		_, err := URL(context.Background(), srv.URL+path, opts)
		require.ErrorIs(t, err, apperrors.ErrIO, path)
		require.Equal(t, 1, apperrors.ExitCode(err))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestURLRejectsUnsupportedScheme(t *testing.T) {
	for _, raw := range []string{"ftp://example.com/x", "not a url", "file:///etc/passwd"} {
		_, err := URL(context.Background(), raw, options())
		require.ErrorIs(t, err, apperrors.ErrUsage, raw)
	}
}

func TestURLSavesOutput(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "saved.bin")
	opts := options()
	opts.Output = out

	res, err := URL(context.Background(), srv.URL+"/redirect/307", opts)
	require.NoError(t, err)
	require.Equal(t, out, res.Name)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, payload, data)
	require.Equal(t, hash.Sum(sha256.Sum256(data)), res.Digest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no partial files left behind")
}

func TestURLExpectedDigest(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "checked.bin")

	good := hash.Sum(sha256.Sum256(payload))
	opts := options()
	opts.Output = out
	opts.Expect = &good
	_, err := URL(context.Background(), srv.URL+"/file.bin", opts)
	require.NoError(t, err)
	require.FileExists(t, out)

	require.NoError(t, os.Remove(out))
	bad := hash.Sum256([]byte("something else"))
	opts.Expect = &bad
	res, err := URL(context.Background(), srv.URL+"/file.bin", opts)
	require.ErrorIs(t, err, apperrors.ErrMismatch)
	require.Equal(t, good, res.Digest)
	require.NoFileExists(t, out)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestURLCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := URL(ctx, srv.URL+"/file.bin", options())
	require.ErrorIs(t, err, context.Canceled)
}
