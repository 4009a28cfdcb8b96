package hierarchy

import "strings"

const (
	// Separator joins segments of a bucket path.
	Separator = "."
	// partSeparator joins bucket values of several categories within one segment.
	partSeparator = "|"
)

var (
	escaper   = strings.NewReplacer("%", "%25", ".", "%2E", "|", "%7C")
	unescaper = strings.NewReplacer("%25", "%", "%2E", ".", "%7C", "|")
)

// Escape makes a bucket value safe to be used as a path segment.
func Escape(value string) string {
	return escaper.Replace(value)
}

// Unescape reverses Escape.
func Unescape(segment string) string {
	return unescaper.Replace(segment)
}

// JoinPath joins escaped segments into a path. Root is the empty path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Separator)
}

// SplitPath splits a path into escaped segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Child returns path of the child bucket.
func Child(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// Ancestors returns every path from root to path inclusive, root first.
func Ancestors(path string) []string {
	segments := SplitPath(path)
	paths := make([]string, 0, len(segments)+1)
	paths = append(paths, "")
	for i := range segments {
		paths = append(paths, JoinPath(segments[:i+1]...))
	}
	return paths
}

// Parent returns the parent path and the last segment.
func Parent(path string) (string, string) {
	i := strings.LastIndex(path, Separator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func composeSegment(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Escape(v)
	}
	return strings.Join(parts, partSeparator)
}

func decomposeSegment(segment string, n int) ([]string, bool) {
	parts := strings.Split(segment, partSeparator)
	if len(parts) != n {
		return nil, false
	}
	for i, p := range parts {
		parts[i] = Unescape(p)
	}
	return parts, true
}
