// This file implements utilities for parsing and validating HTTP request
// data, consolidating the form parsing patterns the mutation handlers share.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"costtracker/internal/view"
)

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// ParseBodyValues reads form values from the request regardless of method.
// DELETE requests carry their form payload in the body, which ParseForm
// ignores, so those are decoded by hand. JSON bodies are flattened to their
// top-level string values, the shape htmx sends with hx-vals.
func ParseBodyValues(r *http.Request) (url.Values, *HTMXResponseBuilder) {
	if r.Method != http.MethodDelete {
		if resp := ParseFormOrFail(r); resp != nil {
			return nil, resp
		}
		return r.Form, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, BadRequestError("Could not read request")
	}
	if len(body) == 0 {
		return url.Values{}, nil
	}

	if body[0] == '{' || body[0] == '[' {
		var decoded map[string]interface{}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, BadRequestError("Invalid JSON request format")
		}
		values := url.Values{}
		for k, v := range decoded {
			values.Set(k, fmt.Sprintf("%v", v))
		}
		return values, nil
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, BadRequestError("Invalid form data")
	}
	return values, nil
}

// formatAmount renders a float as a currency string, e.g. "$12.50".
func formatAmount(v float64) string {
	formatted := view.FormatAmount(v)
	if strings.HasPrefix(formatted, "-") {
		return "-$" + formatted[1:]
	}
	return "$" + formatted
}
