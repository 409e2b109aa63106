package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"affiliate-studio/internal/media"
)

const (
	slotSubjects  = "subjects"
	slotReference = "reference"
)

type uploadView struct {
	media.UploadedImage
	URL string `json:"url"`
}

type uploadsResponse struct {
	Subjects  []uploadView `json:"subjects"`
	Reference []uploadView `json:"reference"`
	MaxFiles  int          `json:"max_files"`
}

func views(items []media.UploadedImage) []uploadView {
	out := make([]uploadView, len(items))
	for i, it := range items {
		out[i] = uploadView{UploadedImage: it, URL: "/blob/" + media.Token(it.PreviewURL)}
	}
	return out
}

func (s *Server) uploads() uploadsResponse {
	return uploadsResponse{
		Subjects:  views(s.subjects.List()),
		Reference: views(s.reference.List()),
		MaxFiles:  s.subjects.MaxFiles(),
	}
}

func (s *Server) holder(slot string) (*media.Holder, bool) {
	switch slot {
	case slotSubjects:
		return s.subjects, true
	case slotReference:
		return s.reference, true
	}
	return nil, false
}

func (s *Server) handleListUploads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.uploads())
}

// handleUpload accepts multipart "files" (or a single "image"). The
// reference slot is replaced; the product slot is appended to.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	slot := r.PathValue("slot")
	h, ok := s.holder(slot)
	if !ok {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	headers = append(headers, r.MultipartForm.File["image"]...)
	if len(headers) == 0 {
		badRequest(w, "missing image")
		return
	}

	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readImage(fh)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		files = append(files, f)
	}

	if slot == slotReference {
		h.Replace(files[len(files)-1])
		writeJSON(w, http.StatusOK, s.uploads())
		return
	}

	for _, f := range files {
		if _, err := h.Add(f.Name, f.MIMEType, f.Data); err != nil {
			if errors.Is(err, media.ErrFull) {
				badRequest(w, fmt.Sprintf("at most %d product images", h.MaxFiles()))
				return
			}
			badRequest(w, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, s.uploads())
}

func readImage(fh *multipart.FileHeader) (media.File, error) {
	file, err := fh.Open()
	if err != nil {
		return media.File{}, fmt.Errorf("failed to read %s", fh.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.File{}, fmt.Errorf("failed to read %s", fh.Filename)
	}
	if len(data) == 0 {
		return media.File{}, fmt.Errorf("%s is empty", fh.Filename)
	}

	mimeType := media.DetectMIMEType(fh.Header.Get("Content-Type"), data)
	if !strings.HasPrefix(mimeType, "image/") {
		return media.File{}, fmt.Errorf("%s is not an image", fh.Filename)
	}
	return media.File{Name: fh.Filename, MIMEType: mimeType, Data: data}, nil
}

func (s *Server) handleClearUploads(w http.ResponseWriter, r *http.Request) {
	h, ok := s.holder(r.PathValue("slot"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.Clear()
	writeJSON(w, http.StatusOK, s.uploads())
}

func (s *Server) handleRemoveUpload(w http.ResponseWriter, r *http.Request) {
	h, ok := s.holder(r.PathValue("slot"))
	if !ok || !h.Remove(r.PathValue("id")) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.uploads())
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := s.registry.Open(media.URLFromToken(r.PathValue("token")))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("content-type", mimeType)
	w.Header().Set("cache-control", "private, max-age=3600")
	_, _ = w.Write(data)
}

// files returns the current product files and the reference, if any.
func (s *Server) files() ([]media.File, *media.File) {
	subjects := s.subjects.Files()
	var ref *media.File
	if refs := s.reference.Files(); len(refs) > 0 {
		ref = &refs[0]
	}
	return subjects, ref
}
