package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/auth"
)

// AccessEntry describes one access to clinical data.
type AccessEntry struct {
	RequestID      string
	PractitionerID string
	Resource       string
	Action         string
	PatientID      string
	Method         string
	Path           string
	RemoteIP       string
	Status         int
}

// Audit logs every authenticated request under /api/v1 as a clinical data
// access event: who touched which resource of which patient. Patient ids come
// from the route parameters, never from request bodies.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			path := c.Request().URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return err
			}
			practitionerID := auth.UserIDFromContext(c.Request().Context())
			if practitionerID == "" {
				return err
			}

			entry := BuildAccessEntry(c)
			entry.PractitionerID = practitionerID
			if he, ok := err.(*echo.HTTPError); ok {
				entry.Status = he.Code
			}

			logger.Info().
				Str("type", "clinical_access").
				Str("request_id", entry.RequestID).
				Str("practitioner_id", entry.PractitionerID).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("patient_id", entry.PatientID).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.Status).
				Msg("access")

			return err
		}
	}
}

// BuildAccessEntry extracts the audit fields from a routed request.
func BuildAccessEntry(c echo.Context) AccessEntry {
	req := c.Request()
	rid, _ := c.Get("request_id").(string)
	entry := AccessEntry{
		RequestID: rid,
		Resource:  resourceFromPath(req.URL.Path),
		Action:    actionFromMethod(req.Method),
		Method:    req.Method,
		Path:      req.URL.Path,
		RemoteIP:  c.RealIP(),
		Status:    c.Response().Status,
	}

	if pid := c.Param("patient_id"); isUUID(pid) {
		entry.PatientID = pid
	} else if entry.Resource == "patients" && isUUID(c.Param("id")) {
		entry.PatientID = c.Param("id")
	}
	return entry
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath returns the first segment after /api/v1/.
func resourceFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	segment, _, _ := strings.Cut(rest, "/")
	if segment == "" {
		return "unknown"
	}
	return segment
}

func isUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
