package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"intellimind/internal/ingestion"
	"intellimind/internal/insights"
	"intellimind/internal/models"
	"intellimind/internal/storage"
	"intellimind/internal/transcription"
)

// maxUploadSize caps uploaded audio files at 500MB
const maxUploadSize = 500 << 20

// MeetingHandler handles meeting-related HTTP requests
type MeetingHandler struct {
	ingester    *ingestion.Ingester
	manager     *transcription.Manager
	meetings    *storage.MeetingRepository
	transcripts *storage.TranscriptRepository
	insightRepo *storage.InsightRepository
	generator   *insights.Generator
}

// NewMeetingHandler creates a new MeetingHandler
func NewMeetingHandler(
	ingester *ingestion.Ingester,
	manager *transcription.Manager,
	meetings *storage.MeetingRepository,
	transcripts *storage.TranscriptRepository,
	insightRepo *storage.InsightRepository,
	generator *insights.Generator,
) *MeetingHandler {
	return &MeetingHandler{
		ingester:    ingester,
		manager:     manager,
		meetings:    meetings,
		transcripts: transcripts,
		insightRepo: insightRepo,
		generator:   generator,
	}
}

// Upload handles meeting audio upload
// POST /api/meetings
func (h *MeetingHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	if fh.Size > maxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open file"})
	}
	defer f.Close()

	meeting, err := h.ingester.IngestUpload(ctx, f, ingestion.UploadOptions{
		Title:    c.FormValue("title"),
		Filename: fh.Filename,
		ModelID:  c.FormValue("model"),
	})
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, meeting)
}

// UploadURL ingests the audio track of a video URL
// POST /api/meetings/url
func (h *MeetingHandler) UploadURL(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		URL   string `json:"url"`
		Model string `json:"model"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	meeting, err := h.ingester.IngestURL(ctx, req.URL, req.Model)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, meeting)
}

// List returns meetings, newest first
// GET /api/meetings
func (h *MeetingHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	meetings, err := h.meetings.List(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meetings == nil {
		meetings = []*models.Meeting{}
	}

	return c.JSON(http.StatusOK, meetings)
}

// Get returns one meeting
// GET /api/meetings/:id
func (h *MeetingHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	meeting, err := h.meetings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meeting == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	return c.JSON(http.StatusOK, meeting)
}

// Progress returns the live transcription progress of a meeting. Once the
// job has been removed from memory the stored transcript is returned
// instead.
// GET /api/meetings/:id/progress
func (h *MeetingHandler) Progress(c echo.Context) error {
	ctx := c.Request().Context()

	meeting, err := h.meetings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meeting == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	if meeting.JobID != "" {
		snap, err := h.manager.Progress(meeting.JobID)
		if err == nil {
			return c.JSON(http.StatusOK, snap)
		}
		if !errors.Is(err, transcription.ErrJobNotFound) {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	// Job no longer in memory: serve the persisted state
	transcript, err := h.transcripts.GetByMeetingID(ctx, meeting.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if transcript == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "transcript not found"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"job_id":          meeting.JobID,
		"status":          meeting.Status,
		"progress":        transcript.Progress,
		"total":           transcript.SegmentCount,
		"transcript":      transcript.Text,
		"failed_indices":  transcript.FailedSegments,
		"transcript_done": true,
	})
}

// Stop requests a running transcription to stop
// POST /api/meetings/:id/stop
func (h *MeetingHandler) Stop(c echo.Context) error {
	ctx := c.Request().Context()

	meeting, err := h.meetings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meeting == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}
	if meeting.JobID == "" {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no transcription job for this meeting"})
	}

	if err := h.manager.StopJob(meeting.JobID); err != nil {
		if errors.Is(err, transcription.ErrJobNotFound) || errors.Is(err, transcription.ErrJobFinished) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "transcription already finished"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "transcription stopping"})
}

// Transcript returns the stored transcript of a meeting
// GET /api/meetings/:id/transcript
func (h *MeetingHandler) Transcript(c echo.Context) error {
	ctx := c.Request().Context()

	transcript, err := h.transcripts.GetByMeetingID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if transcript == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "transcript not found"})
	}

	return c.JSON(http.StatusOK, transcript)
}

// GenerateInsight runs the SCQA analysis on a completed transcript
// POST /api/meetings/:id/insights
func (h *MeetingHandler) GenerateInsight(c echo.Context) error {
	ctx := c.Request().Context()

	if h.generator == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "insight generation is not configured"})
	}

	id := c.Param("id")
	transcript, err := h.transcripts.GetByMeetingID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if transcript == nil || transcript.Text == "" {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no transcript available for this meeting"})
	}

	insight, err := h.generator.Generate(ctx, id, transcript.Text)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if err := h.insightRepo.Create(ctx, insight); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, insight)
}

// ListInsights returns the stored insights of a meeting
// GET /api/meetings/:id/insights
func (h *MeetingHandler) ListInsights(c echo.Context) error {
	ctx := c.Request().Context()

	list, err := h.insightRepo.ListByMeetingID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []*models.Insight{}
	}

	return c.JSON(http.StatusOK, list)
}

// Delete removes a meeting, its stored audio and transcript
// DELETE /api/meetings/:id
func (h *MeetingHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	meeting, err := h.meetings.GetByID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meeting == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "meeting not found"})
	}

	if meeting.JobID != "" {
		// Best effort: stop and drop the in-memory job if still present
		h.manager.StopJob(meeting.JobID)
		h.manager.Remove(meeting.JobID)
	}

	if err := h.meetings.Delete(ctx, meeting.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if meeting.AudioPath != "" {
		os.RemoveAll(filepath.Dir(meeting.AudioPath))
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "meeting deleted"})
}
