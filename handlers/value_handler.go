package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	middleware "kpitracker/middlewares"
	"kpitracker/models"
	service "kpitracker/services"
	"kpitracker/utils"
)

type ValueHandler struct {
	service service.ValueService
}

func NewValueHandler(valueService service.ValueService) *ValueHandler {
	return &ValueHandler{
		service: valueService,
	}
}

// SubmitValue runs a measurement through the validation, duplicate and
// override gates before it is stored. A blocked submission comes back with
// 409 and the full gate outcome so the client can re-submit with
// confirm=true where that is the only obstacle.
func (h *ValueHandler) SubmitValue(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var value models.KPIValue
	value.KPIID = kpiID
	if err := utils.DecodeAndValidate(w, r, &value); err != nil {
		return
	}
	value.KPIID = kpiID

	username := middleware.GetUsernameFromContext(r.Context())
	confirmed := r.URL.Query().Get("confirm") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.service.SubmitValue(ctx, &value, username, confirmed)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !result.Stored {
		utils.HandleDataResponse(w, "Value not stored", result, http.StatusConflict)
		return
	}

	utils.HandleDataResponse(w, "Value stored successfully", result, http.StatusCreated)
}

func (h *ValueHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	kpiID, ok := parseObjectID(w, r.PathValue("id"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	values, err := h.service.GetHistory(ctx, kpiID)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleDataResponse(w, "History retrieved successfully", values, http.StatusOK)
}

func (h *ValueHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.HandleMessageResponse(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	valueID, ok := parseObjectID(w, r.PathValue("valueId"))
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.HandleMessageResponse(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	username := middleware.GetUsernameFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	attachment, err := h.service.UploadEvidence(ctx, valueID, header.Filename, file, username, contentType)
	if err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleDataResponse(w, "Evidence uploaded successfully", attachment, http.StatusCreated)
}

func (h *ValueHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	fileID, ok := parseObjectID(w, r.PathValue("fileId"))
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	stream, err := h.service.DownloadEvidence(ctx, fileID)
	if err != nil {
		utils.HandleMessageResponse(w, "File not found", http.StatusNotFound)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.GetFile().Name))

	if _, err := io.Copy(w, stream); err != nil {
		fmt.Printf("Failed to stream file %s: %v\n", fileID.Hex(), err)
	}
}

func (h *ValueHandler) DeleteEvidence(w http.ResponseWriter, r *http.Request) {
	valueID, ok := parseObjectID(w, r.PathValue("valueId"))
	if !ok {
		return
	}
	fileID, ok := parseObjectID(w, r.PathValue("fileId"))
	if !ok {
		return
	}

	username := middleware.GetUsernameFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.service.DeleteEvidence(ctx, valueID, fileID, username); err != nil {
		utils.HandleMessageResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.HandleMessageResponse(w, "Evidence deleted successfully", http.StatusOK)
}
