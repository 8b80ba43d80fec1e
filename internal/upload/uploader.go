package upload

import (
	"context"
	"errors"
	"io"
)

// UploadedFile describe el resultado de una subida de imagen.
type UploadedFile struct {
	URL      string
	PublicID string
}

// Uploader define la interfaz para almacenamiento de imágenes de perfil.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (UploadedFile, error)
	Delete(ctx context.Context, publicID string) error
}

type disabledUploader struct {
	reason string
}

func NewDisabledUploader(reason string) Uploader {
	return &disabledUploader{reason: reason}
}

func (u *disabledUploader) Upload(_ context.Context, _ string, _ io.Reader) (UploadedFile, error) {
	if u.reason == "" {
		return UploadedFile{}, errors.New("uploader disabled")
	}
	return UploadedFile{}, errors.New(u.reason)
}

func (u *disabledUploader) Delete(_ context.Context, _ string) error {
	return nil
}
