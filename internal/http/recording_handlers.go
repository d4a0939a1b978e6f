package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartscribe-backend-go/internal/models"
	"smartscribe-backend-go/internal/services"
)

// recordings up to 200MB; the provider rejects anything larger anyway
const maxRecordingUpload = 200 << 20

func (s *Server) UploadRecording(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if err := r.ParseMultipartForm(maxRecordingUpload); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	recording, err := services.SaveRecording(s.DB, s.Config.UploadStoragePath, user.ID,
		header.Filename, r.FormValue("name"), r.FormValue("duration"), file)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "File Upload",
		"Recording uploaded: "+recording.Name, map[string]interface{}{"recordingId": recording.ID},
		clientIP(r), r.UserAgent())
	WriteJSON(w, http.StatusCreated, recordingView(recording, nil))
}

func (s *Server) ListRecordings(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	recordings, err := services.ListRecordings(s.DB, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(recordings))
	for i := range recordings {
		transcription, err := services.GetTranscription(s.DB, recordings[i].ID)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		out = append(out, recordingView(&recordings[i], transcription))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) GetRecording(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	recordingID := chi.URLParam(r, "recordingId")
	recording, err := services.GetRecording(s.DB, recordingID, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	transcription, err := services.GetTranscription(s.DB, recordingID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, recordingView(recording, transcription))
}

func (s *Server) DeleteRecording(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	recordingID := chi.URLParam(r, "recordingId")
	if err := services.DeleteRecording(s.DB, s.Config.UploadStoragePath, recordingID, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Recording deleted"})
}

func (s *Server) TranscribeRecording(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	recordingID := chi.URLParam(r, "recordingId")
	result, err := services.TranscribeRecording(r.Context(), s.DB, s.Transcriber,
		s.Config.UploadStoragePath, recordingID, user.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyExists {
		status = http.StatusOK
	}
	if !result.AlreadyExists {
		services.LogUserActivity(s.DB, user.ID, user.Email, user.Name, "Transcription Created",
			"Recording transcribed", map[string]interface{}{"recordingId": recordingID},
			clientIP(r), r.UserAgent())
	}
	WriteJSON(w, status, map[string]interface{}{
		"id":            result.Transcription.ID,
		"recordingId":   result.Transcription.RecordingID,
		"text":          result.Transcription.Text,
		"createdAt":     result.Transcription.CreatedAt,
		"alreadyExists": result.AlreadyExists,
	})
}

func recordingView(recording *models.Recording, transcription *models.Transcription) map[string]interface{} {
	view := map[string]interface{}{
		"id":           recording.ID,
		"name":         recording.Name,
		"filename":     recording.Filename,
		"originalName": recording.OriginalName,
		"duration":     recording.Duration,
		"url":          "/uploads/" + services.RecordingBucket + "/" + recording.Filename,
		"createdAt":    recording.CreatedAt,
	}
	if transcription != nil {
		view["transcription"] = map[string]interface{}{
			"id":        transcription.ID,
			"text":      transcription.Text,
			"createdAt": transcription.CreatedAt,
		}
	}
	return view
}
