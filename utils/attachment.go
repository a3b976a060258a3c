package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"epictech-chat/db"
)

// MaxAttachmentSize is the largest file accepted as an attachment
const MaxAttachmentSize = 10 * 1024 * 1024

// ErrFileTooLarge is returned for attachments above the size limit
var ErrFileTooLarge = errors.New("file too large")

// AttachmentLoader reads files from disk into attachments
type AttachmentLoader struct {
	maxFileSize  int64 // Maximum file size in bytes
	maxImageSize uint  // Maximum image dimension (width or height), 0 disables resizing
	imageQuality int   // JPEG quality (1-100)
}

// NewAttachmentLoader creates a loader. Images larger than maxImageSize pixels on either
// side are scaled down.
func NewAttachmentLoader(maxImageSize uint) *AttachmentLoader {
	return &AttachmentLoader{
		maxFileSize:  MaxAttachmentSize,
		maxImageSize: maxImageSize,
		imageQuality: 85,
	}
}

// Load reads filePath and returns it as an attachment
func (l *AttachmentLoader) Load(filePath string) (db.FileInput, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return db.FileInput{}, fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return db.FileInput{}, fmt.Errorf("%s is a directory", filePath)
	}
	if info.Size() > l.maxFileSize {
		return db.FileInput{}, fmt.Errorf("%w: %d bytes (max %d bytes)", ErrFileTooLarge, info.Size(), l.maxFileSize)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return db.FileInput{}, fmt.Errorf("failed to read file: %w", err)
	}

	mimeType := DetectMimeType(filePath, data)
	if l.maxImageSize > 0 && isResizableImage(mimeType) {
		resized, newType, err := l.shrinkImage(data, mimeType)
		if err != nil {
			return db.FileInput{}, err
		}
		data, mimeType = resized, newType
	}

	return db.FileInput{
		Name: filepath.Base(filePath),
		Type: mimeType,
		Size: int64(len(data)),
		Data: data,
	}, nil
}

// DetectMimeType detects the MIME type of a file by extension, then by content
func DetectMimeType(filePath string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filePath))

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Remove charset if present
		if idx := strings.Index(mimeType, ";"); idx > 0 {
			mimeType = mimeType[:idx]
		}
		return mimeType
	}

	switch ext {
	case ".py":
		return "text/x-python"
	case ".go":
		return "text/x-go"
	case ".java":
		return "text/x-java"
	case ".c", ".h":
		return "text/x-c"
	case ".cpp", ".cc", ".cxx":
		return "text/x-c++"
	case ".md":
		return "text/markdown"
	}

	sniffed := http.DetectContentType(content)
	if idx := strings.Index(sniffed, ";"); idx > 0 {
		sniffed = sniffed[:idx]
	}
	return sniffed
}

func isResizableImage(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif":
		return true
	}
	return false
}

// shrinkImage scales an image down to maxImageSize keeping the aspect ratio.
// Images that already fit are returned unchanged.
func (l *AttachmentLoader) shrinkImage(data []byte, mimeType string) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())
	if width <= l.maxImageSize && height <= l.maxImageSize {
		return data, mimeType, nil
	}

	if width > height {
		img = resize.Resize(l.maxImageSize, 0, img, resize.Lanczos3)
	} else {
		img = resize.Resize(0, l.maxImageSize, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		// Convert to JPEG for other formats
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: l.imageQuality})
		mimeType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// ReadAttachment reads an attachment from r, enforcing the size limit
func ReadAttachment(name string, r io.Reader) (db.FileInput, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return db.FileInput{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	if len(data) > MaxAttachmentSize {
		return db.FileInput{}, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
	}
	return db.FileInput{
		Name: filepath.Base(name),
		Type: DetectMimeType(name, data),
		Size: int64(len(data)),
		Data: data,
	}, nil
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
