package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phorium/phorium/internal/handler/dto"
	"github.com/phorium/phorium/internal/middleware"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/internal/service"
)

// Generator runs paid generations.
type Generator interface {
	GenerateText(ctx context.Context, in service.TextInput) (*service.GenerationOutcome, error)
	GenerateImage(ctx context.Context, in service.ImageInput) (*service.GenerationOutcome, error)
	History(ctx context.Context, userID string, limit int) ([]*model.Generation, error)
}

// GenerationHandler handles text and image generation requests.
type GenerationHandler struct {
	svc    Generator
	logger *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(svc Generator, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		svc:    svc,
		logger: logger,
	}
}

// Text handles POST /api/generate/text.
func (h *GenerationHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	userID, err := middleware.ResolveUserID(r, req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "USER_MISMATCH", err.Error())
		return
	}

	outcome, err := h.svc.GenerateText(r.Context(), service.TextInput{
		UserID:   userID,
		Product:  req.Product,
		Tone:     req.Tone,
		Keywords: req.Keywords,
	})
	if err != nil {
		h.fail(w, outcome, err)
		return
	}

	g := outcome.Generation
	writeJSON(w, http.StatusOK, dto.GenerationResponse{
		OK:      true,
		ID:      g.ID,
		Kind:    string(g.Kind),
		Text:    g.Output,
		Cost:    g.Cost,
		Balance: outcome.Balance,
	})
}

// Image handles POST /api/generate/image.
func (h *GenerationHandler) Image(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	userID, err := middleware.ResolveUserID(r, req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "USER_MISMATCH", err.Error())
		return
	}

	outcome, err := h.svc.GenerateImage(r.Context(), service.ImageInput{
		UserID: userID,
		Prompt: req.Prompt,
		Size:   req.Size,
	})
	if err != nil {
		h.fail(w, outcome, err)
		return
	}

	g := outcome.Generation
	resp := dto.GenerationResponse{
		OK:      true,
		ID:      g.ID,
		Kind:    string(g.Kind),
		Cost:    g.Cost,
		Balance: outcome.Balance,
	}
	if outcome.Image != nil {
		resp.ImageURL = outcome.Image.URL
		resp.ImageB64 = outcome.Image.B64JSON
		resp.RevisedPrompt = outcome.Image.RevisedPrompt
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/generations/{userID}.
func (h *GenerationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	generations, err := h.svc.History(r.Context(), userID, queryLimit(r))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if generations == nil {
		generations = []*model.Generation{}
	}

	writeJSON(w, http.StatusOK, dto.GenerationListResponse{OK: true, UserID: userID, Generations: generations})
}

func (h *GenerationHandler) fail(w http.ResponseWriter, outcome *service.GenerationOutcome, err error) {
	if errors.Is(err, service.ErrInsufficientCredits) {
		var balance int64
		if outcome != nil {
			balance = outcome.Balance
		}
		writeInsufficient(w, balance)
		return
	}
	handleServiceError(w, h.logger, err)
}
