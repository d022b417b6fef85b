package filehandler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"DocForensics/pkg/models"
)

/*
File handling for the forensic engine: content sniffing of uploaded documents,
bounded file reading and collection of input files for batch runs.
Content always wins over the extension; the filename is only a hint used when
the bytes carry no recognisable signature.
*/

// SupportedExtensions maps file extensions to the document kind they usually hold
var SupportedExtensions = map[string]models.DocumentKind{
	".png":  models.KindImage,
	".jpg":  models.KindImage,
	".jpeg": models.KindImage,
	".gif":  models.KindImage,
	".bmp":  models.KindImage,
	".tif":  models.KindImage,
	".tiff": models.KindImage,
	".webp": models.KindImage,
	".pdf":  models.KindPDF,
	".docx": models.KindDOCX,
}

var (
	pdfSignature = []byte("%PDF")
	zipSignature = []byte("PK")
)

// DetectKind sniffs the document kind from its leading bytes.
// %PDF is a PDF, PK is a DOCX (zip container), anything else is attempted as a raster image.
func DetectKind(data []byte, filenameHint string) models.DocumentKind {
	if len(data) == 0 {
		return models.KindUnknown
	}

	switch {
	case bytes.HasPrefix(data, pdfSignature):
		return models.KindPDF
	case bytes.HasPrefix(data, zipSignature):
		return models.KindDOCX
	case filetype.IsImage(head(data)):
		return models.KindImage
	}

	// No known signature. A non-image extension does not make the bytes a PDF or DOCX,
	// so the raster decoder gets the final say.
	if kind, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filenameHint))]; ok && kind == models.KindImage {
		return kind
	}
	return models.KindImage
}

// ImageFormat returns the sniffed image subtype (jpg, png, ...) or "" when unknown
func ImageFormat(data []byte) string {
	kind, err := filetype.Image(head(data))
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.Extension
}

func head(data []byte) []byte {
	// filetype only ever inspects the first 262 bytes
	if len(data) > 262 {
		return data[:262]
	}
	return data
}

// ReadFileBytes reads a file and returns its content, refusing files larger than maxSize
func ReadFileBytes(filePath string, maxSize int64) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	size := info.Size()
	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("file too large (%d bytes, max %d)", size, maxSize)
	}

	content := make([]byte, size)
	if _, err := io.ReadFull(file, content); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// IsSupportedFile checks if a file has an extension the engine accepts
func IsSupportedFile(path string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// GatherFiles collects the supported files in a directory (non-recursive)
func GatherFiles(dirPath string) ([]string, error) {
	var files []string

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue // Skip directories
		}

		filePath := filepath.Join(dirPath, entry.Name())
		if IsSupportedFile(filePath) {
			files = append(files, filePath)
		}
	}

	return files, nil
}

// FilesInDirectory walks a directory tree and returns every supported file
func FilesInDirectory(dirPath string) ([]string, error) {
	var files []string

	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	err = filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSupportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}
