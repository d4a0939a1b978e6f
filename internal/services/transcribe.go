package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// TranscriptionFailed wraps the last provider error after every
// filename-hint retry has been exhausted.
type TranscriptionFailed struct {
	Err error
}

func (e TranscriptionFailed) Error() string {
	return "transcription failed: " + e.Err.Error()
}

func (e TranscriptionFailed) Unwrap() error {
	return e.Err
}

// hintExtensions is the ordered list of filename-extension hints tried
// when the provider cannot sniff the format. Mobile recorders produce
// containers the provider routinely misidentifies, so the same bytes
// are resubmitted under each hint until one is accepted.
var hintExtensions = []string{".m4a", ".mp4", ".wav", ".mp3", ".aac", ".webm"}

const minAudioSize = 1024

// TranscriptionClient turns an uploaded audio file into transcript
// text via an external speech-to-text provider, normalizing the audio
// first when ffmpeg is available.
type TranscriptionClient struct {
	APIKey     string
	BaseURL    string
	FFmpegPath string
	HTTPClient *http.Client
}

func NewTranscriptionClient(apiKey, baseURL, ffmpegPath string) *TranscriptionClient {
	return &TranscriptionClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		FFmpegPath: ffmpegPath,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Transcribe validates the file, normalizes it best-effort, and
// submits it with filename-hint retries. The caller owns the overall
// request timeout via ctx.
func (c *TranscriptionClient) Transcribe(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", ErrNotFound("Audio file not found")
	}
	if info.Size() < minAudioSize {
		return "", ErrBadRequest("Audio file is empty or too short to transcribe")
	}

	submitPath := path
	converted, err := c.normalizeAudio(ctx, path)
	if err != nil {
		log.Printf("audio normalize skipped for %s: %v", filepath.Base(path), err)
	} else if converted != "" {
		submitPath = converted
		defer func() { _ = os.Remove(converted) }()
	}

	hints := hintNames(submitPath)
	var lastErr error
	for _, hint := range hints {
		text, err := c.submit(ctx, submitPath, hint)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("transcription attempt with hint %s failed: %v", hint, err)
	}
	return "", TranscriptionFailed{Err: lastErr}
}

// normalizeAudio transcodes to mono 16kHz PCM WAV. Returns "" when the
// tool is unavailable; transcription proceeds with the original file.
func (c *TranscriptionClient) normalizeAudio(ctx context.Context, path string) (string, error) {
	if c.FFmpegPath == "" {
		return "", fmt.Errorf("ffmpeg not configured")
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(os.TempDir(), base+"_16k.wav")
	cmd := exec.CommandContext(ctx, c.FFmpegPath,
		"-y", "-i", path,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	return out, nil
}

// hintNames returns the filename hints to try, starting with the real
// name when it already carries an extension.
func hintNames(path string) []string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	names := make([]string, 0, len(hintExtensions)+1)
	seen := map[string]bool{}
	if filepath.Ext(base) != "" {
		names = append(names, base)
		seen[strings.ToLower(filepath.Ext(base))] = true
	}
	for _, ext := range hintExtensions {
		if seen[ext] {
			continue
		}
		names = append(names, stem+ext)
	}
	return names
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *TranscriptionClient) submit(ctx context.Context, path, hintName string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", "whisper-1"); err != nil {
		return "", err
	}
	if err := writer.WriteField("language", "en"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", hintName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription provider http %d: %s", resp.StatusCode, string(raw))
	}
	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Text, nil
}

const labelSystemPrompt = "You are a helpful assistant that labels speakers in a transcript. " +
	"Given a raw transcript, identify when different people are speaking and label them as " +
	"'Speaker 1:', 'Speaker 2:', etc. Return the transcript with these labels inserted. " +
	"Do not change the original text, only add labels and line breaks between speakers. " +
	"Always label at least one speaker, even for a single-speaker transcript."

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// LabelSpeakers inserts speaker labels via the text-completion
// provider. Labeling is an enhancement: any provider failure falls
// back to the raw transcript.
func (c *TranscriptionClient) LabelSpeakers(ctx context.Context, text string) string {
	labeled, err := c.labelSpeakers(ctx, text)
	if err != nil {
		log.Printf("speaker labeling fallback: %v", err)
		return text
	}
	if strings.TrimSpace(labeled) == "" {
		return text
	}
	return labeled
}

func (c *TranscriptionClient) labelSpeakers(ctx context.Context, text string) (string, error) {
	payload := chatRequest{
		Model: "gpt-4o",
		Messages: []chatMessage{
			{Role: "system", Content: labelSystemPrompt},
			{Role: "user", Content: "Please label the speakers in this transcript:\n\n" + text},
		},
		Temperature: 0,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("labeling provider http %d: %s", resp.StatusCode, string(body))
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("labeling provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
