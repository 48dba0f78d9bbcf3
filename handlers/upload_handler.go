package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/dance-battle/services"
)

type UploadHandler struct {
	imageService services.ImageService
}

func NewUploadHandler(is services.ImageService) *UploadHandler {
	return &UploadHandler{imageService: is}
}

// UploadImage обрабатывает POST /uploads (multipart, поле "image", необязательное "folder").
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.imageService.Enabled() {
		mapServiceErrorToHTTP(w, r, services.ErrUploadsDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(services.MaxImageSize); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get image file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for image"))
		return
	}

	result, err := h.imageService.UploadImage(r.Context(), services.ImageUploadInput{
		Folder:      r.FormValue("folder"),
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"reference": result.Location, "key": result.Key}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
