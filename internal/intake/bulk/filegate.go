package bulk

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/metrics"
)

// MaxFileSize is the client-enforced upload limit.
const MaxFileSize = 10 * 1024 * 1024 // 10 MiB

var allowedMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

var allowedExtensions = map[string]bool{
	".csv":  true,
	".xls":  true,
	".xlsx": true,
}

// FileRef describes a candidate upload: declared name, size and MIME type.
// The content itself is not inspected by the gate.
type FileRef struct {
	Name string
	Size int64
	MIME string
}

// checkFile runs the local acceptance gate. A file passes on either a known
// MIME type or a known extension; both must miss for rejection. Size is
// checked regardless.
func checkFile(f FileRef) *apperrors.StandardError {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !allowedMIMETypes[f.MIME] && !allowedExtensions[ext] {
		metrics.FilesRejected.WithLabelValues("type").Inc()
		return apperrors.NewFileRejected(
			fmt.Sprintf("unsupported file type %q (%s); use CSV or Excel", ext, f.MIME))
	}
	if f.Size > MaxFileSize {
		metrics.FilesRejected.WithLabelValues("size").Inc()
		return apperrors.NewFileRejected(
			fmt.Sprintf("file size %d exceeds the %d byte limit", f.Size, MaxFileSize))
	}
	return nil
}
