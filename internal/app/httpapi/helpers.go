package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/stillpoint/serenity/internal/apperr"
	"github.com/stillpoint/serenity/internal/auth"
	"github.com/stillpoint/serenity/internal/middleware"
)

// decodeJSON decodes the request body strictly; unknown fields are rejected
// so client typos surface as errors instead of silent drops.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body").WithDetail("body", err.Error())
	}
	return nil
}

// principal returns the authenticated principal. Routes calling this are
// mounted inside Require, so absence is a server bug, not a client error.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, apperr.Unauthorized("no token provided")
	}
	return p, nil
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
