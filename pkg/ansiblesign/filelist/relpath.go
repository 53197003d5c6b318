package filelist

import "strings"

// CheckRelative returns why p cannot name a file inside the project root, or
// "" when it can. Backslashes count as separators so that Windows-style
// manifests are held to the same rule.
func CheckRelative(p string) string {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return "absolute path"
	}
	if len(p) >= 2 && p[1] == ':' && isLetter(p[0]) {
		return "absolute path"
	}
	for _, seg := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if seg == ".." {
			return "path escapes project root"
		}
	}
	return ""
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
