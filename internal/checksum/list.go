package checksum

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"gosha/internal/hash"
)

const tagPrefix = "SHA256 ("

// Entry is one line of a checksum list.
type Entry struct {
	Digest hash.Sum
	Name   string
	// Binary records the '*' marker of sha256sum's binary mode. Hashing is
	// identical either way.
	Binary bool
	Line   int
}

var (
	nameEscaper   = strings.NewReplacer("\\", "\\\\", "\n", "\\n", "\r", "\\r")
	nameUnescaper = map[byte]byte{'\\': '\\', 'n': '\n', 'r': '\r'}
)

// FormatLine renders a result the way sha256sum does: digest, two spaces,
// name. A name holding a backslash or line break is escaped and the line is
// prefixed with a backslash.
func FormatLine(r Result) string {
	marker, name := escapeName(r.Name)
	return marker + r.Digest.String() + "  " + name
}

// FormatTagLine renders a result in the BSD tagged format, escaped the same
// way as FormatLine.
func FormatTagLine(r Result) string {
	marker, name := escapeName(r.Name)
	return marker + tagPrefix + name + ") = " + r.Digest.String()
}

func escapeName(name string) (string, string) {
	if !strings.ContainsAny(name, "\\\n\r") {
		return "", name
	}
	return "\\", nameEscaper.Replace(name)
}

func unescapeName(name string) (string, error) {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] != '\\' {
			b.WriteByte(name[i])
			continue
		}
		i++
		if i == len(name) {
			return "", errors.New("name ends with an unfinished escape")
		}
		c, ok := nameUnescaper[name[i]]
		if !ok {
			return "", fmt.Errorf("unknown escape \"\\%c\" in name", name[i])
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// ParseList reads a checksum list. Both the sha256sum format ("<hex>  name"
// or "<hex> *name") and the BSD tagged format ("SHA256 (name) = <hex>") are
// accepted, with or without the leading backslash that marks an escaped
// name. Blank lines and lines starting with '#' are skipped.
func ParseList(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entry.Line = lineNo
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksum list: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (Entry, error) {
	escaped := strings.HasPrefix(line, "\\")
	if escaped {
		line = line[1:]
	}
	entry, err := parseFields(line)
	if err != nil || !escaped {
		return entry, err
	}
	if entry.Name, err = unescapeName(entry.Name); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func parseFields(line string) (Entry, error) {
	if strings.HasPrefix(line, tagPrefix) {
		sep := strings.LastIndex(line, ") = ")
		if sep < len(tagPrefix) {
			return Entry{}, errors.New("malformed tagged line")
		}
		sum, err := hash.ParseDigest(line[sep+len(") = "):])
		if err != nil {
			return Entry{}, err
		}
		return Entry{Digest: sum, Name: line[len(tagPrefix):sep]}, nil
	}

	const hexLen = 2 * hash.Size
	if len(line) < hexLen+3 || line[hexLen] != ' ' {
		return Entry{}, errors.New("expected \"<digest>  <name>\"")
	}
	sum, err := hash.ParseDigest(line[:hexLen])
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Digest: sum, Name: line[hexLen+2:]}
	switch line[hexLen+1] {
	case ' ':
	case '*':
		entry.Binary = true
	default:
		return Entry{}, fmt.Errorf("unknown mode marker %q", line[hexLen+1])
	}
	return entry, nil
}

// Status is the outcome of verifying one entry.
type Status int

const (
	// StatusOK means the file matched its listed digest.
	StatusOK Status = iota
	// StatusFailed means the file was read but its digest differs.
	StatusFailed
	// StatusUnreadable means the file could not be hashed.
	StatusUnreadable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFailed:
		return "FAILED"
	default:
		return "FAILED open or read"
	}
}

// Verification is the result of checking one entry.
type Verification struct {
	Entry
	Status Status
	Actual hash.Sum
	Err    error
}

// Verify hashes every listed file and compares it with its entry. Per-file
// failures are reported in the returned slice; an error is only returned when
// ctx is cancelled.
func Verify(ctx context.Context, entries []Entry, opts Options) ([]Verification, error) {
	opts = opts.withDefaults()
	out := make([]Verification, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			v := Verification{Entry: entry}
			res, err := File(ctx, entry.Name, opts)
			switch {
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				v.Status = StatusUnreadable
				v.Err = err
			case res.Digest != entry.Digest:
				v.Status = StatusFailed
				v.Actual = res.Digest
			default:
				v.Status = StatusOK
				v.Actual = res.Digest
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
