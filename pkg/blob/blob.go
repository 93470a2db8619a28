package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Uploader is the blob upload collaborator. Upload stores fileBytes under
// path and returns a publicly resolvable URL.
type Uploader interface {
	Upload(ctx context.Context, path string, fileBytes []byte) (string, error)
}

// UploadError signals a failed upload. Callers decide fallback policy; the
// orchestrator degrades to the inline preview instead of aborting the send.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %q: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func IsUploadFailed(err error) bool {
	var uploadErr *UploadError
	return errors.As(err, &uploadErr)
}

// FSUploader writes blobs below a directory and serves them under a base
// URL. It exists for local runs; production deployments plug in their own
// Uploader.
type FSUploader struct {
	Dir     string
	BaseURL string
}

var _ Uploader = (*FSUploader)(nil)

func NewFSUploader(dir string, baseURL string) *FSUploader {
	return &FSUploader{Dir: dir, BaseURL: baseURL}
}

func (u *FSUploader) Upload(ctx context.Context, path string, fileBytes []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UploadError{Path: path, Err: err}
	}

	// unique name so repeated uploads of the same file never collide
	name := uuid.NewString() + "-" + filepath.Base(path)
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	if err := os.WriteFile(filepath.Join(u.Dir, name), fileBytes, 0o644); err != nil {
		return "", &UploadError{Path: path, Err: err}
	}

	public, err := url.JoinPath(u.BaseURL, name)
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	return public, nil
}
