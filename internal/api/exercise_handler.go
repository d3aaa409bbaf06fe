package api

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/service"
	"alcyxob/exercise-curator/internal/storage"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExerciseHandler serves read-only views of the dataset. It loads the dataset
// on every request and never writes it.
type ExerciseHandler struct {
	curator service.CuratorService
	signer  storage.URLSigner // nil when the media source cannot sign URLs
	logger  *zap.Logger
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(curator service.CuratorService, signer storage.URLSigner, logger *zap.Logger) *ExerciseHandler {
	return &ExerciseHandler{curator: curator, signer: signer, logger: logger}
}

// ExerciseListResponse wraps a listing.
type ExerciseListResponse struct {
	Count     int               `json:"count"`
	Exercises []json.RawMessage `json:"exercises"`
}

// MediaResponse is returned by GetExerciseMedia.
type MediaResponse struct {
	ID  string `json:"id"`
	Gif string `json:"gif"`
	URL string `json:"url,omitempty"`
}

func mapExercisesToResponse(exercises []*domain.Exercise) (ExerciseListResponse, error) {
	resp := ExerciseListResponse{Exercises: make([]json.RawMessage, 0, len(exercises))}
	for _, ex := range exercises {
		raw, err := ex.MarshalJSON()
		if err != nil {
			return resp, err
		}
		resp.Exercises = append(resp.Exercises, raw)
	}
	resp.Count = len(resp.Exercises)
	return resp, nil
}

// ListExercises godoc
// @Summary List exercises
// @Description Returns dataset records, optionally filtered by muscle and equipment tier.
// @Param muscle query string false "primary (substring) or secondary muscle"
// @Param tier query string false "equipment tier, UNKNOWN for missing"
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	ds, ok := h.load(c)
	if !ok {
		return
	}
	filtered := service.Filter(ds, service.ExerciseFilter{
		Muscle: c.Query("muscle"),
		Tier:   c.Query("tier"),
	})
	resp, err := mapExercisesToResponse(filtered)
	if err != nil {
		h.logger.Error("failed to encode exercises", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to encode exercises.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetExercise godoc
// @Summary Get one exercise by id
// @Failure 404 "not found"
// @Failure 409 "id is duplicated; dedup required"
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	ex, ok := h.lookup(c)
	if !ok {
		return
	}
	raw, err := ex.MarshalJSON()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to encode exercise.")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// GetExerciseMedia godoc
// @Summary Get the media reference of an exercise
// @Description Includes a temporary download URL when the media source supports it.
// @Router /exercises/{id}/media [get]
func (h *ExerciseHandler) GetExerciseMedia(c *gin.Context) {
	ex, ok := h.lookup(c)
	if !ok {
		return
	}
	gif, _ := ex.String(domain.FieldGif)
	if gif == "" {
		abortWithError(c, http.StatusNotFound, "Exercise has no resolved media.")
		return
	}
	resp := MediaResponse{ID: ex.ID(), Gif: gif}
	if h.signer != nil {
		url, err := h.signer.GeneratePresignedDownloadURL(c.Request.Context(), gif, storage.DefaultPresignedURLExpiry)
		if err != nil {
			abortWithError(c, http.StatusBadGateway, "Failed to sign media URL.")
			return
		}
		resp.URL = url
	}
	c.JSON(http.StatusOK, resp)
}

// GetReport godoc
// @Summary Validation report of the current dataset
// @Router /report [get]
func (h *ExerciseHandler) GetReport(c *gin.Context) {
	_, report, err := h.curator.Inspect(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to inspect dataset", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to load dataset.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": report.Valid(), "report": report})
}

func (h *ExerciseHandler) load(c *gin.Context) (*domain.Dataset, bool) {
	h.logger.Debug("loading dataset",
		zap.String("route", c.FullPath()),
		zap.String("subject", c.GetString(ContextSubjectKey)))
	ds, _, err := h.curator.Inspect(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load dataset", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to load dataset.")
		return nil, false
	}
	return ds, true
}

func (h *ExerciseHandler) lookup(c *gin.Context) (*domain.Exercise, bool) {
	ds, ok := h.load(c)
	if !ok {
		return nil, false
	}
	pos, err := domain.BuildIndex(ds).Lookup(c.Param("id"))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
		return nil, false
	case errors.Is(err, domain.ErrAmbiguous):
		abortWithError(c, http.StatusConflict, err.Error())
		return nil, false
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return ds.Exercises[pos], true
}
