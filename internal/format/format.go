// Package format provides a registry mapping file extensions to the kinds of
// compiled artifacts the importer understands.
package format

import (
	"strings"
	"sync"
)

const (
	// Class is a single compiled class file.
	Class = "class"
	// Archive is a zip container of class files.
	Archive = "archive"
)

// Format describes one artifact kind.
type Format struct {
	Name       string
	Extensions []string
	// Container reports whether the artifact holds other artifacts.
	Container bool
}

// Formats maps format names to their configuration.
var Formats = map[string]*Format{
	Class: {
		Name:       Class,
		Extensions: []string{".class"},
	},
	Archive: {
		Name:       Archive,
		Extensions: []string{".jar", ".zip", ".war"},
		Container:  true,
	},
}

// skipNames are class files that carry module or package metadata rather
// than a type.
var skipNames = map[string]struct{}{
	"module-info.class":  {},
	"package-info.class": {},
}

var (
	extensionMap  map[string]string
	extensionOnce sync.Once
)

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, f := range Formats {
			for _, ext := range f.Extensions {
				extensionMap[ext] = f.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the format name for a file extension, or "" if
// unsupported. Matching is case-insensitive.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Skip reports whether a class file with the given base name carries no type.
func Skip(base string) bool {
	_, ok := skipNames[base]
	return ok
}
