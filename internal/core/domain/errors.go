package domain

import "errors"

var (
	// ErrInvalidBoundingBox means geometry cannot be placed on the image at all.
	ErrInvalidBoundingBox  = errors.New("invalid bounding box")
	ErrInvalidImageSize    = errors.New("invalid image size")
	ErrUnsupportedGeometry = errors.New("unsupported geometry") // recovered by skipping that overlay
	ErrDecode              = errors.New("decode failed")
	ErrEncode              = errors.New("encode failed")
	ErrInvalidQuery        = errors.New("invalid distance query")
	ErrInvalidColor        = errors.New("invalid color")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrImageNotFound       = errors.New("image not found")
	ErrImageFetch          = errors.New("image fetch failed")
)
