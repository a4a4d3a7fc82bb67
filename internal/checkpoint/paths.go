package checkpoint

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gosha/internal/hash"
)

// Ext is the file extension of checkpoint files.
const Ext = ".gosha-ckpt"

const maxStemLen = 64

var unsafeChars = strings.NewReplacer("<", "_", ">", "_", ":", "_", "\"", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")

// PathFor returns the checkpoint location in dir for the source file. The
// name keeps a readable stem of the source's base name and is made unique by
// a hash of its absolute path, so equal base names in different directories
// do not collide.
func PathFor(dir, source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolve checkpoint source: %w", err)
	}
	id := hash.Sum256([]byte(abs))
	name := stem(filepath.Base(abs)) + "-" + hex.EncodeToString(id[:8]) + Ext
	return filepath.Join(dir, name), nil
}

func stem(base string) string {
	s := unsafeChars.Replace(strings.TrimSpace(base))
	s = strings.Trim(s, " .")
	if len(s) > maxStemLen {
		cut := maxStemLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if s == "" {
		s = "file"
	}
	return s
}
