package constants

import (
	"path/filepath"
	"strings"
)

// Upload kinds accepted by the import endpoints and the archive
const (
	FileKindUnknown = iota
	FileKindXLSX
	FileKindCSV
	FileKindPDF
)

func DetectFileTypeFromExt(filename string) int {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".xlsx", ".xlsm":
		return FileKindXLSX
	case ".csv":
		return FileKindCSV
	case ".pdf":
		return FileKindPDF
	default:
		return FileKindUnknown
	}
}

// ContentTypeFromExt is used when archiving uploads and generated files.
func ContentTypeFromExt(filename string) string {
	switch DetectFileTypeFromExt(filename) {
	case FileKindXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FileKindCSV:
		return "text/csv; charset=utf-8"
	case FileKindPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
