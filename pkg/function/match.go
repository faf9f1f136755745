package function

import "strings"

// NormalizeExtension lower-cases ext and ensures a single leading dot.
// Blank input yields "".
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimLeft(ext, ".")

	if ext == "" {
		return ""
	}

	return "." + strings.ToLower(ext)
}

// ExtensionOf returns the lower-cased extension of the last element of path,
// including the leading dot. Both '/' and '\' are treated as separators so
// Windows paths resolve the same way on every platform. A name without a dot
// or ending in one has no extension; a name that starts with its only dot,
// such as ".lnk", is all extension.
func ExtensionOf(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	dot := strings.LastIndexByte(base, '.')
	if dot < 0 || dot == len(base)-1 {
		return ""
	}

	return strings.ToLower(base[dot:])
}

// Matches reports whether path is eligible for the plugin described by d: its
// extension equals, ignoring case, at least one supported extension.
// Matches is pure and performs no filesystem access.
func Matches(d Descriptor, path string) bool {
	ext := ExtensionOf(path)
	if ext == "" {
		return false
	}

	for _, supported := range d.extensions {
		if strings.EqualFold(supported.Extension, ext) {
			return true
		}
	}

	return false
}

// Supports is the method form of Matches.
func (d Descriptor) Supports(path string) bool {
	return Matches(d, path)
}
