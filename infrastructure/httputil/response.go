// Package httputil provides small HTTP helpers shared by the control
// plane's handlers: JSON envelopes, client-IP extraction, and bounded body
// reads.
package httputil

import (
	"encoding/json"
	"net/http"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the wire shape from spec.md §6: {error, detail?, ...}.
type errorEnvelope struct {
	Error  string                 `json:"error"`
	Detail map[string]interface{} `json:"detail,omitempty"`
}

// WriteError writes the standard error envelope for any error. If err is a
// *ServiceError its code/status/detail are used verbatim; otherwise it is
// mapped to a generic 500 internal_error, never leaking the underlying
// message (spec.md §7).
func WriteError(w http.ResponseWriter, err error) {
	svcErr, ok := cperrors.As(err)
	if !ok {
		svcErr = cperrors.Internal(err)
	}
	WriteJSON(w, svcErr.HTTPStatus, errorEnvelope{
		Error:  string(svcErr.Code),
		Detail: svcErr.Detail,
	})
}
