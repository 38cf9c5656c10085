package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/cppla/postfeed/config"
)

var (
	// ErrEmptyAsset is returned for an empty upload payload.
	ErrEmptyAsset = errors.New("empty image payload")
	// ErrAssetTooLarge is returned when the decoded payload exceeds the size limit.
	ErrAssetTooLarge = errors.New("image payload too large")
	// ErrForeignAsset is returned when a reference was not issued by this store.
	ErrForeignAsset = errors.New("asset reference not owned by this store")
)

// AssetStore keeps post images on the local filesystem under dir and serves them
// under prefix. Uploads are normalised to JPEG no wider than maxWidth.
type AssetStore struct {
	dir      string
	prefix   string
	maxBytes int
	maxWidth int
	quality  int
	now      func() time.Time
}

// NewAssetStore builds a store from the asset settings.
func NewAssetStore(cfg config.AppConfig) *AssetStore {
	return &AssetStore{
		dir:      cfg.AssetsDir,
		prefix:   strings.TrimRight(cfg.AssetsPublicPrefix, "/"),
		maxBytes: cfg.AssetsMaxBytes,
		maxWidth: cfg.AssetsMaxWidth,
		quality:  cfg.AssetsJPEGQuality,
		now:      time.Now,
	}
}

// Upload decodes a base64 image (optionally a data URI), re-encodes it and
// returns its public reference.
func (s *AssetStore) Upload(ctx context.Context, payload string) (string, error) {
	raw, err := decodeImagePayload(payload)
	if err != nil {
		return "", err
	}
	if s.maxBytes > 0 && len(raw) > s.maxBytes {
		return "", ErrAssetTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	day := s.now().Format("2006/01/02")
	name := uuid.NewString() + ".jpg"
	dstDir := filepath.Join(s.dir, filepath.FromSlash(day))
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	tmp, err := os.CreateTemp(dstDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dstDir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store image: %w", err)
	}
	return path.Join(s.prefix, day, name), nil
}

// Delete removes the file behind ref. A file that is already gone counts as deleted.
func (s *AssetStore) Delete(ctx context.Context, ref string) error {
	p, err := s.pathOf(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *AssetStore) pathOf(ref string) (string, error) {
	rel := strings.TrimPrefix(ref, s.prefix+"/")
	if rel == ref || rel == "" {
		return "", ErrForeignAsset
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", ErrForeignAsset
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func decodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyAsset
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.Contains(payload[:comma], ";base64") {
			return nil, errors.New("unsupported data URI")
		}
		payload = payload[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyAsset
	}
	return raw, nil
}
