package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"smartscribe-backend-go/internal/models"
)

const RecordingBucket = "recording"

// GenerateRecordingFilename builds a collision-resistant on-disk name:
// unix millis plus a random suffix, defaulting the extension to .m4a
// when the original name carries none.
func GenerateRecordingFilename(originalName string) string {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".m4a"
	}
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("recording-%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(suffix), ext)
}

// SaveRecording streams the upload to disk and records its metadata.
func SaveRecording(db *sqlx.DB, basePath, userID, originalName, displayName, duration string, body io.Reader) (*models.Recording, error) {
	dir := filepath.Join(basePath, RecordingBucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	filename := GenerateRecordingFilename(originalName)
	target := filepath.Join(dir, filename)
	file, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(file, body)
	_ = file.Close()
	if err != nil {
		_ = os.Remove(target)
		return nil, err
	}
	if size == 0 {
		_ = os.Remove(target)
		return nil, ErrBadRequest("No file uploaded")
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = originalName
	}
	recording := models.Recording{
		ID:           uuid.NewString(),
		UserID:       userID,
		Filename:     filename,
		OriginalName: nullIfBlank(originalName),
		Name:         displayName,
		Duration:     nullIfBlank(duration),
		CreatedAt:    time.Now().UTC(),
	}
	_, err = db.Exec(`
INSERT INTO recordings (id, user_id, filename, original_name, name, duration, deleted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7)
`, recording.ID, recording.UserID, recording.Filename, recording.OriginalName,
		recording.Name, recording.Duration, recording.CreatedAt)
	if err != nil {
		_ = os.Remove(target)
		return nil, err
	}
	return &recording, nil
}

func ListRecordings(db *sqlx.DB, userID string) ([]models.Recording, error) {
	recordings := []models.Recording{}
	err := db.Select(&recordings, `
SELECT id, user_id, filename, original_name, name, duration, deleted, created_at
FROM recordings
WHERE user_id = $1 AND deleted = FALSE
ORDER BY created_at DESC
`, userID)
	return recordings, err
}

// GetRecording enforces ownership before returning any data.
func GetRecording(db *sqlx.DB, recordingID, userID string) (*models.Recording, error) {
	recording := models.Recording{}
	err := db.Get(&recording, `
SELECT id, user_id, filename, original_name, name, duration, deleted, created_at
FROM recordings
WHERE id = $1 AND deleted = FALSE
`, recordingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("Recording not found")
	}
	if err != nil {
		return nil, err
	}
	if recording.UserID != userID {
		return nil, ErrForbidden("Not authorized")
	}
	return &recording, nil
}

func GetTranscription(db *sqlx.DB, recordingID string) (*models.Transcription, error) {
	transcription := models.Transcription{}
	err := db.Get(&transcription, `
SELECT id, user_id, recording_id, text, created_at
FROM transcriptions
WHERE recording_id = $1
`, recordingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transcription, nil
}

// DeleteRecording removes the on-disk file first, tolerating an
// already-missing file, then deletes the transcription and recording
// rows. A database failure after the file is gone is surfaced.
func DeleteRecording(db *sqlx.DB, basePath, recordingID, userID string) error {
	recording, err := GetRecording(db, recordingID, userID)
	if err != nil {
		return err
	}
	path := filepath.Join(basePath, RecordingBucket, recording.Filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return WrapError(err, "remove recording file")
	}
	if _, err := db.Exec(`DELETE FROM transcriptions WHERE recording_id = $1`, recordingID); err != nil {
		return WrapError(err, "remove transcription record")
	}
	if _, err := db.Exec(`DELETE FROM recordings WHERE id = $1`, recordingID); err != nil {
		return WrapError(err, "remove recording record")
	}
	return nil
}

// TranscribeResult carries the transcription and whether it already
// existed before this call.
type TranscribeResult struct {
	Transcription *models.Transcription
	AlreadyExists bool
}

// TranscribeRecording is idempotent: an existing transcription is
// returned unchanged. Otherwise the audio is transcribed, labeled,
// persisted, and the user's lifetime counter incremented. The unique
// index on recording_id makes a concurrent double-transcribe collapse
// to a single row.
func TranscribeRecording(ctx context.Context, db *sqlx.DB, client *TranscriptionClient, basePath, recordingID, userID string) (*TranscribeResult, error) {
	recording, err := GetRecording(db, recordingID, userID)
	if err != nil {
		return nil, err
	}
	existing, err := GetTranscription(db, recordingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &TranscribeResult{Transcription: existing, AlreadyExists: true}, nil
	}

	path := filepath.Join(basePath, RecordingBucket, recording.Filename)
	rawText, err := client.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}
	labeled := client.LabelSpeakers(ctx, rawText)

	transcription := models.Transcription{
		ID:          uuid.NewString(),
		UserID:      userID,
		RecordingID: recordingID,
		Text:        labeled,
		CreatedAt:   time.Now().UTC(),
	}
	result, err := db.Exec(`
INSERT INTO transcriptions (id, user_id, recording_id, text, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (recording_id) DO NOTHING
`, transcription.ID, transcription.UserID, transcription.RecordingID, transcription.Text, transcription.CreatedAt)
	if err != nil {
		return nil, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		// lost the race; return the winner's row
		winner, err := GetTranscription(db, recordingID)
		if err != nil {
			return nil, err
		}
		return &TranscribeResult{Transcription: winner, AlreadyExists: true}, nil
	}

	if _, err := db.Exec(`UPDATE users SET transcriptions = transcriptions + 1 WHERE id = $1`, userID); err != nil {
		log.Printf("transcription counter for user %s: %v", userID, err)
	}
	return &TranscribeResult{Transcription: &transcription}, nil
}
