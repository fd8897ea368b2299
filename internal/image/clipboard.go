package image

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// FromClipboard reads an image from the system clipboard.
// Returns nil, nil when no image is available (not an error).
func FromClipboard() (*Attachment, error) {
	switch runtime.GOOS {
	case "darwin":
		return clipboardMacOS()
	case "linux":
		return clipboardLinux()
	default:
		return nil, fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
}

func clipboardAttachment(data []byte) (*Attachment, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("clipboard image too large: %d bytes (max %d)", len(data), MaxSize)
	}
	return &Attachment{
		MediaType: "image/png",
		Data:      data,
		Filename:  fmt.Sprintf("clipboard_%s.png", time.Now().Format("150405")),
	}, nil
}

// clipboardMacOS goes through osascript; the clipboard image is spilled to a
// temp file because AppleScript cannot write to stdout in binary.
func clipboardMacOS() (*Attachment, error) {
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("clipboard_%d.png", time.Now().UnixNano()))
	defer os.Remove(tmpFile)

	script := fmt.Sprintf(`
		set theFile to POSIX file "%s"
		try
			set imgData to the clipboard as «class PNGf»
			set fileRef to open for access theFile with write permission
			write imgData to fileRef
			close access fileRef
			return "ok"
		on error
			return "no image"
		end try
	`, tmpFile)

	output, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}
	if strings.TrimSpace(string(output)) == "no image" {
		return nil, nil
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard image: %w", err)
	}
	return clipboardAttachment(data)
}

func clipboardLinux() (*Attachment, error) {
	data, err := exec.Command("xclip", "-selection", "clipboard", "-t", "image/png", "-o").Output()
	if err != nil {
		data, err = exec.Command("xsel", "--clipboard", "--output").Output()
		if err != nil {
			return nil, nil
		}
	}
	return clipboardAttachment(data)
}
