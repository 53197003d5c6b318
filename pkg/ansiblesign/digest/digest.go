// Package digest provides the content hash algorithms used to build and
// check checksum manifests. Each algorithm produces a fixed-length hex digest
// of a file's raw bytes.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// DefaultName is the algorithm used when none is configured.
const DefaultName = "sha256"

// ErrUnknownAlgorithm is returned by Lookup for names with no registered algorithm.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm is a named hash function.
type Algorithm interface {
	// Name is the lowercase identifier, e.g. "sha256".
	Name() string

	// Size is the digest length in bytes.
	Size() int

	// New returns a fresh hash.Hash.
	New() hash.Hash
}

type algorithm struct {
	name string
	size int
	ctor func() hash.Hash
}

func (a algorithm) Name() string   { return a.name }
func (a algorithm) Size() int      { return a.size }
func (a algorithm) New() hash.Hash { return a.ctor() }

var _ Algorithm = algorithm{}

var registry = map[string]Algorithm{
	"sha256": algorithm{name: "sha256", size: sha256.Size, ctor: sha256.New},
	"sha512": algorithm{name: "sha512", size: sha512.Size, ctor: sha512.New},
	"blake2b": algorithm{name: "blake2b", size: blake2b.Size256, ctor: func() hash.Hash {
		// New256 only fails for keys longer than 64 bytes.
		h, _ := blake2b.New256(nil)
		return h
	}},
	"blake3": algorithm{name: "blake3", size: 32, ctor: func() hash.Hash { return blake3.New() }},
}

// Lookup returns the algorithm registered under name (case-insensitive).
func Lookup(name string) (Algorithm, error) {
	if name == "" {
		name = DefaultName
	}
	alg, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownAlgorithm, name, strings.Join(Names(), ", "))
	}
	return alg, nil
}

// Default returns the sha256 algorithm.
func Default() Algorithm {
	return registry[DefaultName]
}

// Names returns the registered algorithm names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManifestName returns the file name a manifest of this algorithm is stored
// under, e.g. "sha256sum.txt".
func ManifestName(alg Algorithm) string {
	return alg.Name() + "sum.txt"
}

// HexLen is the number of hex characters in a digest of alg.
func HexLen(alg Algorithm) int {
	return alg.Size() * 2
}

// ValidHex reports whether s is a well-formed digest for alg.
// Both upper and lower case hex digits are accepted.
func ValidHex(alg Algorithm, s string) bool {
	if len(s) != HexLen(alg) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Sum hashes everything read from r and returns the lowercase hex digest and
// the number of bytes consumed.
func Sum(alg Algorithm, r io.Reader) (string, int64, error) {
	h := alg.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashFile returns the hex digest of the file at path and its size.
// The file is streamed, never loaded whole.
func HashFile(alg Algorithm, path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	return Sum(alg, f)
}
