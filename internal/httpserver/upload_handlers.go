package httpserver

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/Sabbir9535/BlinkChat/internal/assets"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// @Summary      Upload an image
// @Description  Multipart upload, field "file". Returns the URL to put in a message's image.
// @Tags         uploads
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Success      201  {object}  uploadResponse
// @Failure      400  {object}  errorResponse
// @Failure      413  {object}  errorResponse
// @Router       /uploads [post]
func handleUpload(images *assets.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, assets.MaxImageBytes+1<<20)
		if err := r.ParseMultipartForm(assets.MaxImageBytes); err != nil {
			badRequest(w, "failed to parse multipart form")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "missing file")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, assets.MaxImageBytes+1))
		if err != nil {
			badRequest(w, "could not read file")
			return
		}
		if len(data) > assets.MaxImageBytes {
			writeError(w, r, assets.ErrTooLarge)
			return
		}

		url, err := images.PutImage(r.Context(), http.DetectContentType(data), data)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
	}
}

func handleServeUpload(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" || filepath.Base(filename) != filename {
			badRequest(w, "invalid filename")
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeFile(w, r, filepath.Join(dir, filename))
	}
}
