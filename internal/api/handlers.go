package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/parsely/flipcards/internal/ai"
	"github.com/parsely/flipcards/internal/core"
	"github.com/parsely/flipcards/internal/db"
	"github.com/parsely/flipcards/internal/editor"
	"github.com/parsely/flipcards/internal/imaging"
	"github.com/parsely/flipcards/internal/parser"
)

// maxCardBody bounds a card draft: several meanings may each carry an inline image
const maxCardBody = 64 << 20

// Handler contains all HTTP handlers.
type Handler struct {
	Service *core.Service
	Log     *zap.Logger
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []editor.FieldError `json:"fields,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ImageResponse carries a decoded image.
type ImageResponse struct {
	DataURI string `json:"dataUri"`
}

// ReviewResponse lists cards in review order.
type ReviewResponse struct {
	Cards []db.Card `json:"cards"`
}

// SuggestRequest asks for suggested card content.
type SuggestRequest struct {
	Word string `json:"word"`
}

// NewRouter registers every route on a new mux.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/cards", h.ListCards)
	mux.HandleFunc("POST /api/cards", h.CreateCard)
	mux.HandleFunc("GET /api/cards/{id}", h.GetCard)
	mux.HandleFunc("DELETE /api/cards/{id}", h.DeleteCard)
	mux.HandleFunc("POST /api/images", h.UploadImage)
	mux.HandleFunc("POST /api/import", h.ImportDocument)
	mux.HandleFunc("GET /api/export", h.ExportCards)
	mux.HandleFunc("GET /api/review", h.Review)
	mux.HandleFunc("POST /api/suggest", h.Suggest)
	mux.HandleFunc("GET /api/stats", h.GetStats)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// ListCards handles GET /api/cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.ListCards())
}

// GetCard handles GET /api/cards/{id}.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseCardID(w, r)
	if !ok {
		return
	}

	card, err := h.Service.GetCard(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Card not found")
		return
	}

	respondJSON(w, http.StatusOK, card)
}

// CreateCard handles POST /api/cards.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCardBody)

	var draft editor.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	card, err := h.Service.CreateCard(draft)
	if err != nil {
		var vErr *editor.ValidationError
		if errors.As(err, &vErr) {
			respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:  "Card is incomplete",
				Fields: vErr.Fields,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save card: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, card)
}

// DeleteCard handles DELETE /api/cards/{id}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseCardID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteCard(id); err != nil {
		if errors.Is(err, db.ErrCardNotFound) {
			respondError(w, http.StatusNotFound, "Card not found")
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, SuccessResponse{Message: "Card deleted successfully"})
}

// UploadImage handles POST /api/images.
// The image type is sniffed from the content; the filename and part headers are ignored.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxImageSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Image too large (max %d bytes)", imaging.MaxImageSize))
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := imaging.ReadLimited(file, imaging.MaxImageSize)
	if err == nil {
		var uri string
		uri, err = h.Service.DecodeImage(r.Context(), data)
		if err == nil {
			respondJSON(w, http.StatusOK, ImageResponse{DataURI: uri})
			return
		}
	}

	switch {
	case errors.Is(err, imaging.ErrImageTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, imaging.ErrUnsupportedImage):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read image: %v", err))
	}
}

// ImportDocument handles POST /api/import.
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if err := parser.ValidateFilename(header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid filename: %v", err))
		return
	}

	if header.Size > parser.MaxFileSize {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("File too large (max %d bytes)", parser.MaxFileSize))
		return
	}

	result, err := h.Service.ImportUpload(file, header.Filename, header.Size)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to import document: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ExportCards handles GET /api/export.
func (h *Handler) ExportCards(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=vocabulary_export.json")

	if err := h.Service.WriteExport(w); err != nil {
		h.logger().Error("export failed", zap.Error(err))
	}
}

// Review handles GET /api/review. An optional seed makes the order reproducible.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var rng *rand.Rand
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid seed")
			return
		}
		rng = rand.New(rand.NewPCG(seed, seed))
	}

	session := h.Service.NewReview(rng)
	respondJSON(w, http.StatusOK, ReviewResponse{Cards: session.Cards()})
}

// Suggest handles POST /api/suggest.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !h.Service.SuggestionsEnabled() {
		respondError(w, http.StatusServiceUnavailable, core.ErrSuggestionsDisabled.Error())
		return
	}

	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		respondError(w, http.StatusBadRequest, "Word is required")
		return
	}

	suggestion, err := h.Service.Suggest(r.Context(), req.Word)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrUnavailable):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		case ai.IsAIError(err):
			respondError(w, http.StatusBadGateway, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to suggest: %v", err))
		}
		return
	}

	respondJSON(w, http.StatusOK, suggestion)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.Stats())
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// parseCardID extracts and validates the "id" path parameter.
// Returns the parsed ID and true on success, or writes an error response and returns false.
func parseCardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// respondError sends an error JSON response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
