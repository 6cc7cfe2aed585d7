// Package storage keeps product images on an afero filesystem and hands out
// the public URLs they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"storefront/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// MaxImageBytes caps a single upload
const MaxImageBytes = 5 << 20

var (
	ErrUnsupportedImage = errors.New("file is not a supported image (jpeg, png, webp, gif)")
	ErrImageTooLarge    = errors.New("image exceeds the upload size limit")
	ErrEmptyImage       = errors.New("image is empty")
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// ImageStore persists uploaded images
type ImageStore interface {
	Save(ctx context.Context, owner uuid.UUID, r io.Reader) (string, error)
	Handler() http.Handler
}

type imageStore struct {
	fs        afero.Fs
	publicURL string
}

// New creates an ImageStore on fs whose files are reachable under publicURL
func New(fs afero.Fs, publicURL string) ImageStore {
	return &imageStore{fs: fs, publicURL: strings.TrimRight(publicURL, "/")}
}

// NewFromConfig roots the store at the configured directory on the local disk
func NewFromConfig(cfg config.StorageConfig) (ImageStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return New(afero.NewBasePathFs(osFs, cfg.Root), cfg.PublicURL), nil
}

// Save sniffs the content type, rejects anything that is not an image and
// writes the file under the owner's directory with a random name
func (s *imageStore) Save(ctx context.Context, owner uuid.UUID, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return "", ErrUnsupportedImage
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := owner.String()
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	name := path.Join(dir, uuid.NewString()+mtype.Extension())
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return s.publicURL + "/" + name, nil
}

// Handler serves stored files read-only
func (s *imageStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(s.fs)).Dir("/"))
}
