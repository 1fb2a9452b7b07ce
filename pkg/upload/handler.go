package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler is the multipart image upload endpoint. The page posts the file
// here before submitting the dish or restaurant form; the response carries
// the stored URL the form then sends to the backend.
type Handler struct {
	store   Store
	maxSize int64
	logger  *slog.Logger
}

// NewHandler creates the endpoint. maxSize caps the request body in bytes.
func NewHandler(store Store, maxSize int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, maxSize: maxSize, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(w, http.StatusRequestEntityTooLarge, "file quá lớn")
			return
		}
		h.fail(w, http.StatusBadRequest, "thiếu file ảnh")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.store.Put(r.Context(), header.Filename, contentType, header.Size, file)
	switch {
	case errors.Is(err, ErrTooLarge):
		h.fail(w, http.StatusRequestEntityTooLarge, "file quá lớn")
		return
	case errors.Is(err, ErrUnsupportedType):
		h.fail(w, http.StatusUnsupportedMediaType, "chỉ chấp nhận file ảnh")
		return
	case err != nil:
		h.logger.Error("image upload failed", "filename", header.Filename, "err", err)
		h.fail(w, http.StatusInternalServerError, "tải ảnh thất bại")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
