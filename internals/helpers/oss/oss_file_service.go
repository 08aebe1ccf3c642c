// file: internals/helpers/oss/oss_file_service.go
package helper

import (
	"io"
	"mime/multipart"
	"strings"

	"schooldesk_backend/internals/constants"

	"github.com/gofiber/fiber/v2"
)

// MaxSheetUploadSize bounds one import upload.
const MaxSheetUploadSize = int64(5 * 1024 * 1024)

// IsMultipart reports a multipart/form-data request.
func IsMultipart(c *fiber.Ctx) bool {
	ct := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	return strings.HasPrefix(ct, "multipart/form-data")
}

var defaultSheetFields = []string{"file", "sheet", "upload"}

// GetSheetFile finds the uploaded spreadsheet among the usual field names
// and checks its extension and size.
func GetSheetFile(c *fiber.Ctx, fieldNames ...string) (*multipart.FileHeader, error) {
	if !IsMultipart(c) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "use multipart/form-data")
	}
	names := fieldNames
	if len(names) == 0 {
		names = defaultSheetFields
	}
	for _, fn := range names {
		fh, err := c.FormFile(fn)
		if err != nil || fh == nil {
			continue
		}
		switch constants.DetectFileTypeFromExt(fh.Filename) {
		case constants.FileKindXLSX, constants.FileKindCSV:
		default:
			return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, "upload an .xlsx or .csv file")
		}
		if fh.Size > MaxSheetUploadSize {
			return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large (max 5 MB)")
		}
		return fh, nil
	}
	return nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
}

// ReadFileHeader reads the whole upload; the reconciler and the archive both
// need the bytes.
func ReadFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxSheetUploadSize+1))
}
