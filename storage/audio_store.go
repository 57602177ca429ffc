package storage

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"recbox/logger"
)

// AudioFileStore persists one finalized audio blob per recording on the local
// filesystem. All operations are non-panicking; callers decide which failures
// are user-visible.
type AudioFileStore struct {
	audioDir string
}

// NewAudioFileStore creates the store, ensuring the audio directory exists.
func NewAudioFileStore(audioDir string) (*AudioFileStore, error) {
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory %s: %w", audioDir, err)
	}
	return &AudioFileStore{audioDir: audioDir}, nil
}

// Finalize copies a transient capture output to a permanent, uniquely named
// location and removes the temporary file. On copy failure the temporary
// locator is returned unchanged: the OS may reclaim it later, and the
// existence check before playback handles that.
func (s *AudioFileStore) Finalize(tempLocator string) string {
	ext := filepath.Ext(tempLocator)
	if ext == "" {
		ext = ".m4a"
	}
	name := fmt.Sprintf("recording_%d%s", time.Now().UnixNano(), ext)
	dst := filepath.Join(s.audioDir, name)

	if err := copyFile(tempLocator, dst); err != nil {
		logger.Warn("finalize copy failed, keeping temporary locator",
			logger.String("temp", tempLocator),
			logger.ErrorField(err))
		return tempLocator
	}

	if err := os.Remove(tempLocator); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove temporary capture file",
			logger.String("temp", tempLocator),
			logger.ErrorField(err))
	}

	return dst
}

// Exists reports whether the locator points at an existing file.
func (s *AudioFileStore) Exists(locator string) bool {
	info, err := os.Stat(locator)
	return err == nil && !info.IsDir()
}

// Delete removes the file. Deleting a non-existent file is not an error.
func (s *AudioFileStore) Delete(locator string) error {
	if err := os.Remove(locator); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", locator, err)
	}
	return nil
}

// ReadBase64 returns the file content encoded for the transcription upload.
func (s *AudioFileStore) ReadBase64(locator string) (string, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", locator, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// MimeType guesses the audio mime type from the locator's extension.
func MimeType(locator string) string {
	switch strings.ToLower(filepath.Ext(locator)) {
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return out.Sync()
}
