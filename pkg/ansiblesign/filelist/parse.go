package filelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidDirective indicates a MANIFEST.in line that could not be parsed.
var ErrInvalidDirective = errors.New("invalid MANIFEST.in directive")

// Action is a MANIFEST.in command word.
type Action string

// Supported MANIFEST.in actions.
const (
	ActionInclude          Action = "include"
	ActionExclude          Action = "exclude"
	ActionGlobalInclude    Action = "global-include"
	ActionGlobalExclude    Action = "global-exclude"
	ActionRecursiveInclude Action = "recursive-include"
	ActionRecursiveExclude Action = "recursive-exclude"
	ActionGraft            Action = "graft"
	ActionPrune            Action = "prune"
)

// Adds reports whether the action adds files to the selection.
func (a Action) Adds() bool {
	switch a {
	case ActionInclude, ActionGlobalInclude, ActionRecursiveInclude, ActionGraft:
		return true
	default:
		return false
	}
}

// DirectiveError describes a malformed MANIFEST.in line.
type DirectiveError struct {
	Line   int
	Text   string
	Reason string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("MANIFEST.in line %d: %s: %q", e.Line, e.Reason, e.Text)
}

func (e *DirectiveError) Unwrap() error {
	return ErrInvalidDirective
}

// Directive is one parsed MANIFEST.in command.
type Directive struct {
	Action Action

	// Dir is the directory argument of recursive-*, graft and prune.
	Dir string

	// Patterns are the glob arguments, empty for graft and prune.
	Patterns []string

	// Line is the 1-based line the directive started on.
	Line int

	matchers []glob.Glob
}

// Matches reports whether the slash-separated relative path rel is selected
// by this directive's patterns.
func (d *Directive) Matches(rel string) bool {
	for _, m := range d.matchers {
		if m.Match(rel) {
			return true
		}
	}
	return false
}

// Parse reads MANIFEST.in content. Blank lines and '#' comments are skipped
// and a trailing backslash joins a line with the next.
func Parse(r io.Reader) ([]*Directive, error) {
	var (
		directives []*Directive
		pending    strings.Builder
		startLine  int
		lineNo     int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		if pending.Len() == 0 {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			startLine = lineNo
		}

		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			pending.WriteByte(' ')
			continue
		}
		pending.WriteString(line)

		d, err := parseDirective(pending.String(), startLine)
		if err != nil {
			return nil, err
		}
		directives = append(directives, d)
		pending.Reset()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading MANIFEST.in: %w", err)
	}

	if pending.Len() > 0 {
		d, err := parseDirective(pending.String(), startLine)
		if err != nil {
			return nil, err
		}
		directives = append(directives, d)
	}

	return directives, nil
}

func parseDirective(text string, line int) (*Directive, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, &DirectiveError{Line: line, Text: text, Reason: "empty directive"}
	}

	d := &Directive{Action: Action(fields[0]), Line: line}
	args := fields[1:]

	// Every argument must stay inside the project root.
	for _, a := range args {
		if reason := CheckRelative(a); reason != "" {
			return nil, &DirectiveError{Line: line, Text: text, Reason: fmt.Sprintf("%s: %q", reason, a)}
		}
	}

	switch d.Action {
	case ActionInclude, ActionExclude, ActionGlobalInclude, ActionGlobalExclude:
		if len(args) == 0 {
			return nil, &DirectiveError{Line: line, Text: text, Reason: fmt.Sprintf("%q expects at least one pattern", d.Action)}
		}
		d.Patterns = cleanPatterns(args)
	case ActionRecursiveInclude, ActionRecursiveExclude:
		if len(args) < 2 {
			return nil, &DirectiveError{Line: line, Text: text, Reason: fmt.Sprintf("%q expects a directory and at least one pattern", d.Action)}
		}
		d.Dir = cleanDir(args[0])
		d.Patterns = cleanPatterns(args[1:])
	case ActionGraft, ActionPrune:
		if len(args) != 1 {
			return nil, &DirectiveError{Line: line, Text: text, Reason: fmt.Sprintf("%q expects exactly one directory", d.Action)}
		}
		d.Dir = cleanDir(args[0])
	default:
		return nil, &DirectiveError{Line: line, Text: text, Reason: fmt.Sprintf("unknown action %q", fields[0])}
	}

	if err := d.compile(); err != nil {
		return nil, &DirectiveError{Line: line, Text: text, Reason: err.Error()}
	}
	return d, nil
}

// compile builds the glob matchers. Single '*' and '?' never cross a '/'.
func (d *Directive) compile() error {
	var sources []string

	switch d.Action {
	case ActionInclude, ActionExclude:
		sources = d.Patterns
	case ActionGlobalInclude, ActionGlobalExclude:
		for _, p := range d.Patterns {
			sources = append(sources, p, "**/"+p)
		}
	case ActionRecursiveInclude, ActionRecursiveExclude:
		prefix := dirPrefix(d.Dir)
		for _, p := range d.Patterns {
			sources = append(sources, prefix+p, prefix+"**/"+p)
		}
	case ActionGraft, ActionPrune:
		sources = []string{dirPrefix(d.Dir) + "**"}
	}

	d.matchers = make([]glob.Glob, 0, len(sources))
	for _, src := range sources {
		g, err := glob.Compile(src, '/')
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", src, err)
		}
		d.matchers = append(d.matchers, g)
	}
	return nil
}

// dirPrefix returns the quoted directory prefix, or "" for the project root.
func dirPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return glob.QuoteMeta(dir) + "/"
}

func cleanDir(dir string) string {
	dir = strings.TrimPrefix(strings.ReplaceAll(dir, `\`, "/"), "./")
	dir = strings.Trim(dir, "/")
	if dir == "." {
		return ""
	}
	return dir
}

func cleanPatterns(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.TrimPrefix(p, "./")
	}
	return out
}
