package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dukerupert/prometna/internal/report"
)

const maxImageSize = 10 << 20

type ReportHandler struct {
	composer *report.Composer
	logger   *slog.Logger
}

func NewReportHandler(c *report.Composer, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{composer: c, logger: logger}
}

// Categories handles GET /api/report/categories
func (h *ReportHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": report.CategoryNames()})
}

// AnalyzeImage handles POST /api/report/analyze-image
func (h *ReportHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}
	img, err := readImage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if img == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": h.composer.AnalyzeImage(r.Context(), *img)})
}

type suggestRequest struct {
	Description string `json:"description"`
}

// SuggestCategory handles POST /api/report/suggest-category. A null
// suggestion means none could be made.
func (h *ReportHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "description is required"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]*report.Suggestion{
		"suggestion": h.composer.SuggestCategory(r.Context(), req.Description),
	})
}

// Submit handles POST /api/report/submit
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return
	}

	var draft report.Draft
	draft.SetDescription(r.FormValue("description"))
	if v := r.FormValue("category"); v != "" {
		c, ok := report.ParseCategory(v)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown category"})
			return
		}
		draft.SetCategory(c)
	}
	img, err := readImage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	draft.SetImage(img)

	receipt, err := h.composer.Submit(r.Context(), &draft)
	if errors.Is(err, report.ErrIncomplete) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category and a description or image are required"})
		return
	}
	if err != nil {
		h.logger.Error("submit report", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to submit report"})
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// readImage returns the optional "image" file of a parsed multipart form.
func readImage(r *http.Request) (*report.Image, error) {
	f, fh, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid image")
	}
	defer f.Close()
	return loadImage(f, fh)
}

func loadImage(f multipart.File, fh *multipart.FileHeader) (*report.Image, error) {
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, errors.New("invalid image")
	}
	if len(data) > maxImageSize {
		return nil, errors.New("image is too large")
	}

	mimeType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.New("file is not an image")
	}
	return &report.Image{Name: fh.Filename, MIMEType: mimeType, Data: data}, nil
}
