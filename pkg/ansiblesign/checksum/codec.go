package checksum

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/digest"
	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/filelist"
)

// separator splits digest from path. The exact bytes are signed, so there is
// no tolerance for a single space or a tab.
const separator = "  "

// Serialize renders the manifest as "<digest>  <path>\n" lines in record order.
func (m *Manifest) Serialize() []byte {
	var buf bytes.Buffer
	for _, r := range m.Records {
		buf.WriteString(r.Digest)
		buf.WriteString(separator)
		buf.WriteString(r.Path)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// String returns the serialized manifest.
func (m *Manifest) String() string {
	return string(m.Serialize())
}

// Parse reads a serialized manifest. Empty lines are skipped. Every other
// line must be a hex digest of the algorithm's length, two spaces, and a
// relative path. A path listed twice is rejected.
func Parse(alg digest.Algorithm, data []byte) (*Manifest, error) {
	if alg == nil {
		alg = digest.Default()
	}

	m := &Manifest{Algorithm: alg}
	seen := make(map[string]int)

	for i, raw := range strings.Split(string(data), "\n") {
		if raw == "" {
			continue
		}
		lineNo := i + 1

		digestPart, pathPart, ok := strings.Cut(raw, separator)
		if !ok {
			return nil, &InvalidLineError{Line: lineNo, Raw: raw, Reason: "missing two-space separator"}
		}
		if !digest.ValidHex(alg, digestPart) {
			return nil, &InvalidLineError{Line: lineNo, Raw: raw, Reason: "malformed " + alg.Name() + " digest"}
		}
		if pathPart == "" {
			return nil, &InvalidLineError{Line: lineNo, Raw: raw, Reason: "empty path"}
		}
		if reason := filelist.CheckRelative(pathPart); reason != "" {
			return nil, &InvalidLineError{Line: lineNo, Raw: raw, Reason: reason}
		}
		if first, dup := seen[pathPart]; dup {
			return nil, &InvalidLineError{Line: lineNo, Raw: raw, Reason: "duplicate of line " + strconv.Itoa(first)}
		}
		seen[pathPart] = lineNo

		m.Records = append(m.Records, Record{Digest: digestPart, Path: pathPart})
	}

	return m, nil
}
