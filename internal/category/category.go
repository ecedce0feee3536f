// Package category classifies filesystem entries into a closed set of
// catalog categories based on file extension.
package category

import (
	"path/filepath"
	"strings"
)

// Category is a closed classification of a catalog entry.
type Category string

const (
	Video      Category = "Video"
	Audio      Category = "Audio"
	Image      Category = "Image"
	Document   Category = "Document"
	Archive    Category = "Archive"
	Executable Category = "Executable"
	Directory  Category = "Directory"
	Other      Category = "Other"
)

// byExtension is the static extension lookup table feeding ForPath.
// Extensions are lowercase and include the leading dot.
var byExtension = map[string]Category{
	// Video containers
	".mkv": Video, ".mp4": Video, ".avi": Video, ".mov": Video,
	".wmv": Video, ".flv": Video, ".webm": Video, ".m4v": Video,
	".mpg": Video, ".mpeg": Video, ".ts": Video, ".m2ts": Video,
	".vob": Video, ".3gp": Video, ".ogv": Video,

	// Audio
	".mp3": Audio, ".flac": Audio, ".wav": Audio, ".aac": Audio,
	".ogg": Audio, ".opus": Audio, ".m4a": Audio, ".wma": Audio,
	".aiff": Audio, ".ape": Audio,

	// Images
	".jpg": Image, ".jpeg": Image, ".png": Image, ".gif": Image,
	".bmp": Image, ".tiff": Image, ".tif": Image, ".webp": Image,
	".heic": Image, ".cr2": Image, ".nef": Image, ".arw": Image,
	".dng": Image,

	// Documents
	".pdf": Document, ".doc": Document, ".docx": Document,
	".xls": Document, ".xlsx": Document, ".ppt": Document,
	".pptx": Document, ".txt": Document, ".md": Document,
	".rtf": Document, ".odt": Document, ".ods": Document,
	".epub": Document, ".mobi": Document, ".csv": Document,

	// Archives
	".zip": Archive, ".rar": Archive, ".7z": Archive, ".tar": Archive,
	".gz": Archive, ".bz2": Archive, ".xz": Archive, ".iso": Archive,
	".tgz": Archive,

	// Executables carrying embedded version resources
	".exe": Executable, ".dll": Executable, ".msi": Executable,
	".sys": Executable, ".ocx": Executable,
}

// ForPath returns the category for a file path based on its extension.
// Directories must be classified by the caller (see ForEntry); a path alone
// cannot distinguish them.
func ForPath(path string) Category {
	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := byExtension[ext]; ok {
		return c
	}
	return Other
}

// ForEntry returns the category for a filesystem entry.
func ForEntry(path string, isDir bool) Category {
	if isDir {
		return Directory
	}
	return ForPath(path)
}

// Valid reports whether c is one of the closed category values.
func Valid(c Category) bool {
	switch c {
	case Video, Audio, Image, Document, Archive, Executable, Directory, Other:
		return true
	}
	return false
}
