package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate entry")
	ErrStaleStatus         = errors.New("document status changed concurrently")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrUpstreamShape       = errors.New("upstream response has unexpected shape")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrUnidentifiedContent = errors.New("content type was not identified")
	ErrEmptyContent        = errors.New("empty content")
	ErrImportRunning       = errors.New("import already running")
)

// IsPermanent reports whether a download failure will not go away on retry:
// an unidentified content type, or an error that says so via Permanent().
func IsPermanent(err error) bool {
	if errors.Is(err, ErrUnidentifiedContent) {
		return true
	}
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}
