package password

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed common_passwords.txt
var commonPasswords string

// Blacklist es un set inmutable de passwords comunes, normalizadas a lowercase.
type Blacklist struct {
	set map[string]struct{}
}

var (
	defaultOnce sync.Once
	defaultList *Blacklist
)

// DefaultBlacklist devuelve la lista embebida en el binario.
func DefaultBlacklist() *Blacklist {
	defaultOnce.Do(func() {
		defaultList, _ = ReadBlacklist(strings.NewReader(commonPasswords))
	})
	return defaultList
}

// LoadBlacklist carga un archivo propio; sin path se usa DefaultBlacklist.
func LoadBlacklist(path string) (*Blacklist, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultBlacklist(), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBlacklist(f)
}

// ReadBlacklist: una password por línea, líneas con # se ignoran.
func ReadBlacklist(r io.Reader) (*Blacklist, error) {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := normalize(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Blacklist{set: set}, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Contains es nil-safe: sin lista no se rechaza nada.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, hit := b.set[normalize(pwd)]
	return hit
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.set)
}
