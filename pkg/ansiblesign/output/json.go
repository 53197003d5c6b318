package output

import (
	"bytes"
	"encoding/json"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/checksum"
)

// document is the structure shared by the JSON and YAML formatters.
type document struct {
	Root       string              `json:"root" yaml:"root"`
	Algorithm  string              `json:"algorithm" yaml:"algorithm"`
	Kind       string              `json:"kind" yaml:"kind"`
	Success    bool                `json:"success" yaml:"success"`
	Files      int                 `json:"files" yaml:"files"`
	Bytes      int64               `json:"bytes" yaml:"bytes"`
	BytesHuman string              `json:"bytes_human" yaml:"bytes_human"`
	Duration   string              `json:"duration,omitempty" yaml:"duration,omitempty"`
	Added      []string            `json:"added,omitempty" yaml:"added,omitempty"`
	Removed    []string            `json:"removed,omitempty" yaml:"removed,omitempty"`
	Mismatches []checksum.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
	Signature  *signatureDoc       `json:"signature,omitempty" yaml:"signature,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
}

type signatureDoc struct {
	Success bool   `json:"success" yaml:"success"`
	Summary string `json:"summary" yaml:"summary"`
}

func buildDocument(r *Report) document {
	doc := document{
		Root:       r.Root,
		Algorithm:  r.Algorithm,
		Kind:       r.Kind,
		Success:    r.Success(),
		Files:      r.Files,
		Bytes:      r.Bytes,
		BytesHuman: humanize.IBytes(uint64(r.Bytes)),
		Added:      r.Added,
		Removed:    r.Removed,
		Mismatches: r.Mismatches,
		Error:      r.Error,
	}
	if r.Duration > 0 {
		doc.Duration = r.Duration.String()
	}
	if r.Signature != nil {
		doc.Signature = &signatureDoc{Success: r.Signature.Success, Summary: r.Signature.Summary}
	}
	return doc
}

// JSONFormatter formats the report as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
