package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordingNamePattern = regexp.MustCompile(`^recording-\d+-[0-9a-f]{8}\.[a-z0-9]+$`)

func TestGenerateRecordingFilename(t *testing.T) {
	name := GenerateRecordingFilename("clip.wav")
	assert.True(t, recordingNamePattern.MatchString(name), "unexpected name %q", name)
	assert.True(t, strings.HasSuffix(name, ".wav"))
}

func TestGenerateRecordingFilenameDefaultsExtension(t *testing.T) {
	name := GenerateRecordingFilename("blob")
	assert.True(t, strings.HasSuffix(name, ".m4a"))
}

func TestGenerateRecordingFilenameUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name := GenerateRecordingFilename("clip.m4a")
		assert.False(t, seen[name], "duplicate name %q", name)
		seen[name] = true
	}
}

func recordingRow(filename string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "filename", "original_name", "name", "duration", "deleted", "created_at"}).
		AddRow("rec-1", "user-1", filename, nil, "Meeting", nil, false, time.Now().UTC())
}

func transcriptionRow(id, text string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "recording_id", "text", "created_at"}).
		AddRow(id, "user-1", "rec-1", text, time.Now().UTC())
}

func TestTranscribeRecordingReturnsExistingUnchanged(t *testing.T) {
	db, mock := newMockDB(t)
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider called for an already-transcribed recording: %s", r.URL.Path)
	})

	mock.ExpectQuery(`FROM recordings`).WithArgs("rec-1").
		WillReturnRows(recordingRow("recording-1-aabbccdd.m4a"))
	mock.ExpectQuery(`FROM transcriptions`).WithArgs("rec-1").
		WillReturnRows(transcriptionRow("tr-1", "Speaker 1: hello"))

	result, err := TranscribeRecording(context.Background(), db, client, t.TempDir(), "rec-1", "user-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyExists)
	assert.Equal(t, "tr-1", result.Transcription.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscribeRecordingReturnsWinnerOnInsertConflict(t *testing.T) {
	basePath := t.TempDir()
	dir := filepath.Join(basePath, RecordingBucket)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	filename := "recording-1-aabbccdd.m4a"
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), bytes.Repeat([]byte{0xAB}, 4096), 0o644))

	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello there"})
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": "Speaker 1: hello there"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM recordings`).WithArgs("rec-1").
		WillReturnRows(recordingRow(filename))
	mock.ExpectQuery(`FROM transcriptions`).WithArgs("rec-1").
		WillReturnError(sql.ErrNoRows)
	// another transcribe of the same recording committed first; the
	// insert hits ON CONFLICT and affects zero rows
	mock.ExpectExec(`INSERT INTO transcriptions`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM transcriptions`).WithArgs("rec-1").
		WillReturnRows(transcriptionRow("tr-winner", "Speaker 1: first in"))

	result, err := TranscribeRecording(context.Background(), db, client, basePath, "rec-1", "user-1")
	require.NoError(t, err)
	assert.True(t, result.AlreadyExists)
	assert.Equal(t, "tr-winner", result.Transcription.ID)
	// the loser must not bump the user's transcription counter
	require.NoError(t, mock.ExpectationsWereMet())
}
