package rest

import (
	"errors"
	"mime/multipart"
	"net/http"
)

var ErrUploadTooLarge = errors.New("uploaded file is too large")
var ErrNoFile = errors.New("no file selected")

// FormFile reads the multipart file field of r, refusing bodies larger than
// maxBytes.
func FormFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	if r.ContentLength > maxBytes {
		return nil, nil, ErrUploadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, ErrUploadTooLarge
		}
		return nil, nil, errors.Join(ErrNoFile, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, errors.Join(ErrNoFile, err)
	}
	if header.Filename == "" {
		_ = file.Close()
		return nil, nil, ErrNoFile
	}
	return file, header, nil
}
