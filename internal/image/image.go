// Package image loads and validates image attachments for a chat turn.
package image

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxSize caps attachments at 5MB; the agent rejects larger payloads anyway.
const MaxSize = 5 * 1024 * 1024

// SupportedTypes maps file extensions to MIME types.
var SupportedTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Attachment is one validated image ready to attach to a request.
type Attachment struct {
	Path      string
	MediaType string
	Data      []byte
	Filename  string
}

// Base64 returns the payload encoded for the wire.
func (a *Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// Size is the raw payload size in bytes.
func (a *Attachment) Size() int {
	return len(a.Data)
}

// Load reads and validates an image file.
func Load(path string) (*Attachment, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() > MaxSize {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", info.Size(), MaxSize)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	mediaType, ok := SupportedTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// The extension is a hint; the content decides.
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, fmt.Errorf("file is not a valid image")
	}

	return &Attachment{
		Path:      absPath,
		MediaType: mediaType,
		Data:      data,
		Filename:  filepath.Base(absPath),
	}, nil
}

// IsImageFile reports whether the extension indicates a supported format.
func IsImageFile(path string) bool {
	_, ok := SupportedTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FormatBytes renders a byte count for the status line.
func FormatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
