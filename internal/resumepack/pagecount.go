package resumepack

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// CountPages asks pdfcpu for a rendered pack's physical page count, the same
// ReadContextFile idiom the PDF metadata extractor used. pdfcpu only reads
// PDF context from a path, so the bytes are spilled to a scratch file first.
func CountPages(pdfBytes []byte) (int, error) {
	f, err := os.CreateTemp("", "jobops-pagecount-*.pdf")
	if err != nil {
		return 0, fmt.Errorf("failed to create scratch file for page count: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(pdfBytes); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write scratch PDF for page count: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close scratch PDF for page count: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	return pdfCtx.PageCount, nil
}
