package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// BodyTooLargeError is returned by ReadAllStrict when the body exceeds the
// configured limit.
type BodyTooLargeError struct{ Limit int64 }

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("body exceeds limit of %d bytes", e.Limit)
}

// ReadAllWithLimit reads up to limit+1 bytes, reporting whether the body was
// truncated, without risking unbounded memory use.
func ReadAllWithLimit(r io.Reader, limit int64) (body []byte, truncated bool, err error) {
	if limit <= 0 {
		return nil, false, fmt.Errorf("limit must be positive")
	}
	limited := io.LimitReader(r, limit+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > limit {
		return b[:limit], true, nil
	}
	return b, false, nil
}

// ReadAllStrict reads the full body up to limit bytes, failing with
// *BodyTooLargeError if the body is larger.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	b, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, &BodyTooLargeError{Limit: limit}
	}
	return b, nil
}

// DecodeJSON reads and decodes a request body into dst, capping the body at
// maxBytes. Errors are written as a standard error envelope and false is
// returned so the caller can stop handling the request.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) bool {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	body, err := ReadAllStrict(r.Body, maxBytes)
	if err != nil {
		WriteError(w, fmt.Errorf("read body: %w", err))
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		WriteError(w, fmt.Errorf("decode body: %w", err))
		return false
	}
	return true
}
