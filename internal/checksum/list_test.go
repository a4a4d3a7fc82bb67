package checksum

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const abcHex = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func TestFormatLine(t *testing.T) {
	res := Result{Name: "abc.txt", Digest: String("abc")}
	require.Equal(t, abcHex+"  abc.txt", FormatLine(res))
	require.Equal(t, "SHA256 (abc.txt) = "+abcHex, FormatTagLine(res))
}

func TestEscapedNamesRoundTrip(t *testing.T) {
	names := []string{"plain.txt", "back\\slash.txt", "two\nlines.txt", "carriage\rreturn", `C:\dir\file`}
	var lines []string
	for _, name := range names {
		res := Result{Name: name, Digest: String("abc")}
		lines = append(lines, FormatLine(res), FormatTagLine(res))
	}
	require.Equal(t, "\\"+abcHex+"  two\\nlines.txt", lines[4])
	require.Equal(t, "\\SHA256 (back\\\\slash.txt) = "+abcHex, lines[3])

	entries, err := ParseList(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2*len(names))
	for i, name := range names {
		require.Equal(t, name, entries[2*i].Name)
		require.Equal(t, name, entries[2*i+1].Name)
		require.Equal(t, String("abc"), entries[2*i].Digest)
	}
}

func TestParseList(t *testing.T) {
	list := strings.Join([]string{
		"# generated by gosha",
		abcHex + "  plain.txt",
		"",
		abcHex + " *binary.bin",
		"SHA256 (tagged name.txt) = " + strings.ToUpper(abcHex),
		abcHex + "  with  spaces.txt\r",
	}, "\n")

	entries, err := ParseList(strings.NewReader(list))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	require.Equal(t, "plain.txt", entries[0].Name)
	require.False(t, entries[0].Binary)
	require.Equal(t, 2, entries[0].Line)

	require.Equal(t, "binary.bin", entries[1].Name)
	require.True(t, entries[1].Binary)

	require.Equal(t, "tagged name.txt", entries[2].Name)
	require.Equal(t, String("abc"), entries[2].Digest)

	require.Equal(t, "with  spaces.txt", entries[3].Name)
	require.Equal(t, 6, entries[3].Line)
}

func TestParseListRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"not a checksum line",
		abcHex + "-x name",
		abcHex[:60] + "  short.txt",
		"SHA256 (broken = " + abcHex,
		"\\" + abcHex + "  bad\\escape",
		"\\" + abcHex + "  trailing\\",
	} {
		_, err := ParseList(strings.NewReader(abcHex + "  ok.txt\n" + line + "\n"))
		require.Error(t, err, line)
		require.Contains(t, err.Error(), "line 2", line)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(good, []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("abd"), 0o644))

	entries := []Entry{
		{Digest: String("abc"), Name: good},
		{Digest: String("abc"), Name: bad},
		{Digest: String("abc"), Name: filepath.Join(dir, "missing.txt")},
	}
	results, err := Verify(context.Background(), entries, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, StatusOK, results[0].Status)
	require.Equal(t, StatusFailed, results[1].Status)
	require.Equal(t, String("abd"), results[1].Actual)
	require.Equal(t, StatusUnreadable, results[2].Status)
	require.Error(t, results[2].Err)

	require.Equal(t, "OK", StatusOK.String())
	require.Equal(t, "FAILED", StatusFailed.String())
}

func TestVerifyCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Verify(ctx, []Entry{{Name: path}}, Options{})
	require.ErrorIs(t, err, context.Canceled)
}
