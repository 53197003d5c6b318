package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantName string
		wantSize int
		wantErr  bool
	}{
		{name: "empty defaults to sha256", input: "", wantName: "sha256", wantSize: 32},
		{name: "sha256", input: "sha256", wantName: "sha256", wantSize: 32},
		{name: "case insensitive", input: "SHA512", wantName: "sha512", wantSize: 64},
		{name: "blake2b", input: "blake2b", wantName: "blake2b", wantSize: 32},
		{name: "blake3", input: "blake3", wantName: "blake3", wantSize: 32},
		{name: "unknown", input: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			alg, err := Lookup(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, alg.Name())
			assert.Equal(t, tt.wantSize, alg.Size())
		})
	}
}

func TestSumKnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		alg   string
		input string
		want  string
	}{
		{"sha256", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"sha256", "hello\n", "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"},
		{"sha512", "", "cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e"},
		{"blake2b", "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
		{"blake3", "", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}

	for _, tt := range tests {
		t.Run(tt.alg+"/"+tt.input, func(t *testing.T) {
			t.Parallel()

			alg, err := Lookup(tt.alg)
			require.NoError(t, err)

			got, n, err := Sum(alg, strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, int64(len(tt.input)), n)
			assert.Len(t, got, HexLen(alg))
		})
	}
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	got, size, err := HashFile(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", got)
	assert.Equal(t, int64(6), size)

	_, _, err = HashFile(Default(), filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidHex(t *testing.T) {
	t.Parallel()

	sha := Default()
	valid := strings.Repeat("a", 64)

	assert.True(t, ValidHex(sha, valid))
	assert.True(t, ValidHex(sha, strings.ToUpper(valid)))
	assert.False(t, ValidHex(sha, valid[:63]), "too short")
	assert.False(t, ValidHex(sha, valid+"0"), "too long")
	assert.False(t, ValidHex(sha, strings.Repeat("g", 64)), "non-hex")
	assert.False(t, ValidHex(sha, ""), "empty")
}

func TestManifestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sha256sum.txt", ManifestName(Default()))

	alg, err := Lookup("blake3")
	require.NoError(t, err)
	assert.Equal(t, "blake3sum.txt", ManifestName(alg))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal("abcdef", "ABCDEF"))
	assert.False(t, Equal("abcdef", "abcdee"))
}
