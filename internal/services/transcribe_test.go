package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudioFixture(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0o644))
	return path
}

func newFakeProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *TranscriptionClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewTranscriptionClient("test-key", srv.URL, "")
	return srv, client
}

func TestHintNamesStartWithOriginalExtension(t *testing.T) {
	names := hintNames("/tmp/recording-17.m4a")
	require.NotEmpty(t, names)
	assert.Equal(t, "recording-17.m4a", names[0])
	assert.Contains(t, names, "recording-17.mp4")
	assert.Contains(t, names, "recording-17.webm")
	// the original extension is not retried
	assert.Len(t, names, len(hintExtensions))
}

func TestHintNamesWithoutExtension(t *testing.T) {
	names := hintNames("/tmp/blob")
	assert.Equal(t, len(hintExtensions), len(names))
	assert.Equal(t, "blob.m4a", names[0])
}

func TestTranscribeRejectsMissingFile(t *testing.T) {
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	})
	_, err := client.Transcribe(context.Background(), "/nonexistent/audio.m4a")
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.Status)
}

func TestTranscribeRejectsTinyFile(t *testing.T) {
	path := writeAudioFixture(t, "short.m4a", 10)
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	})
	_, err := client.Transcribe(context.Background(), path)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.Status)
}

func TestTranscribeRetriesFilenameHints(t *testing.T) {
	path := writeAudioFixture(t, "meeting.m4a", 4096)

	var attempts []string
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		attempts = append(attempts, header.Filename)
		if len(attempts) < 3 {
			http.Error(w, `{"error":"unsupported format"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello world"})
	})

	text, err := client.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, []string{"meeting.m4a", "meeting.mp4", "meeting.wav"}, attempts)
}

func TestTranscribeExhaustsHints(t *testing.T) {
	path := writeAudioFixture(t, "noise.m4a", 4096)

	calls := 0
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	})

	_, err := client.Transcribe(context.Background(), path)
	var failed TranscriptionFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, len(hintExtensions), calls)
}

func TestLabelSpeakersSuccess(t *testing.T) {
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Zero(t, req.Temperature)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Speaker 1: hello"}},
			},
		})
	})
	assert.Equal(t, "Speaker 1: hello", client.LabelSpeakers(context.Background(), "hello"))
}

func TestLabelSpeakersFallsBackOnProviderError(t *testing.T) {
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	assert.Equal(t, "raw transcript", client.LabelSpeakers(context.Background(), "raw transcript"))
}

func TestLabelSpeakersFallsBackOnEmptyResult(t *testing.T) {
	_, client := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	})
	assert.Equal(t, "raw transcript", client.LabelSpeakers(context.Background(), "raw transcript"))
}

func TestTranscriptionFailedUnwraps(t *testing.T) {
	inner := errors.New("http 400")
	err := TranscriptionFailed{Err: inner}
	assert.ErrorIs(t, err, inner)
}
