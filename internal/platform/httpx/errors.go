package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping maps a sentinel error to a problem response.
type ErrorMapping struct {
	Target error
	Status int
	Title  string
	// Detail exposes err.Error() in the response body.
	Detail bool
}

// RespondError writes the problem response of the first mapping matching err
// with errors.Is and reports whether one matched. Unmatched errors become a
// 500 without detail.
func RespondError(w http.ResponseWriter, err error, mappings ...ErrorMapping) bool {
	for _, m := range mappings {
		if m.Target == nil || !errors.Is(err, m.Target) {
			continue
		}
		detail := ""
		if m.Detail {
			detail = err.Error()
		}
		Problem(w, m.Status, m.Title, detail)
		return true
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
	return false
}
