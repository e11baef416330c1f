package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Anvita004/transcriptpro/internal/normalize"
)

// FallbackFilename is used when the sanitized meeting title still fails to
// produce a writable file.
const FallbackFilename = "Transcript.txt"

var (
	// Filesystem-illegal and control characters.
	invalidFilenameChars = regexp.MustCompile(`[:?"*<>|~/\\\x{0001}-\x{001f}\x{007f}\x{0080}-\x{009f}\p{Cf}]`)
	// Leading/trailing dots, NULs and separator-class whitespace.
	leadingEdgeChar  = regexp.MustCompile(`^[.\x{0000}\p{Zl}\p{Zp}\p{Zs}]`)
	trailingEdgeChar = regexp.MustCompile(`[.\x{0000}\p{Zl}\p{Zp}\p{Zs}]$`)
	// Reserved device names.
	reservedDeviceName = regexp.MustCompile(`(?i)^(CON|PRN|AUX|NUL|COM[1-9]|LPT[1-9])(\.|$)`)
)

// SanitizeTitle strips filesystem-illegal characters, control characters and
// reserved device names from a meeting title, replacing them with "_".
func SanitizeTitle(title string) string {
	s := invalidFilenameChars.ReplaceAllString(title, "_")
	s = leadingEdgeChar.ReplaceAllString(s, "_")
	s = trailingEdgeChar.ReplaceAllString(s, "_")
	s = reservedDeviceName.ReplaceAllString(s, "_${2}")
	return s
}

// Filename builds the transcript file name for a meeting.
func Filename(title string, startedAtMs int64) string {
	return fmt.Sprintf("Transcript-%s at %s.txt", SanitizeTitle(title), normalize.FormatFileTime(startedAtMs))
}

// FileWriter writes transcript files into the download directory,
// auto-uniquifying on name collision rather than overwriting.
type FileWriter struct {
	dir    string
	logger *zap.Logger
}

// NewFileWriter creates a file writer rooted at dir.
func NewFileWriter(dir string, logger *zap.Logger) *FileWriter {
	return &FileWriter{dir: dir, logger: logger}
}

// Write stores content under name, returning the final path. On collision the
// name gets a " (n)" suffix, matching browser download behavior.
func (w *FileWriter) Write(name, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for attempt := 0; ; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, attempt, ext)
		}
		path := filepath.Join(w.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}

		w.logger.Info("transcript file written", zap.String("path", path))
		return path, nil
	}
}
