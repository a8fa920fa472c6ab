// Package handler implements the HTTP routes of the service.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
)

// errorBody is the JSON shape of every failed API response.
type errorBody struct {
	OK      bool                    `json:"ok"`
	Error   string                  `json:"error"`
	Message string                  `json:"message,omitempty"`
	Details []profiledoc.FieldError `json:"details,omitempty"`
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

func failValidation(c *gin.Context, err error) {
	var verr *profiledoc.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
			Error:   "profile document does not match the schema",
			Details: verr.Fields,
		})
		return
	}
	fail(c, http.StatusBadRequest, err.Error())
}

// readJSONObject enforces a JSON content type and a non-empty object body,
// and returns the top-level fields undecoded.
func readJSONObject(c *gin.Context) (map[string]json.RawMessage, bool) {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "application/json" {
		fail(c, http.StatusBadRequest, "content type must be application/json")
		return nil, false
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		fail(c, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		fail(c, http.StatusBadRequest, "request body is required")
		return nil, false
	}
	if body[0] != '{' {
		fail(c, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return fields, true
}

var errNotObject = errors.New("must be a JSON object")

// decodeObject decodes raw, which must be a JSON object (not null).
func decodeObject(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errNotObject
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errNotObject
	}
	return m, nil
}

func decodeBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errors.New("must be a boolean")
	}
	return b, nil
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.New("must be a string")
	}
	return s, nil
}

func decodeStringList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errors.New("must be a list of strings")
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("must be a list of strings")
	}
	return list, nil
}
