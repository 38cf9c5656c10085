package services

import "errors"

var (
	// ErrForbidden is returned when the actor does not own the post it tries to change.
	ErrForbidden = errors.New("actor is not the post author")
	// ErrAssetUpload wraps an image upload failure during post creation.
	ErrAssetUpload = errors.New("asset upload failed")
)
