// Package validate turns a normalized field map into a LogEntry command
// ready for persistence. It implements the strict variant of the route:
// coordinates are range-checked on every path and client-supplied image
// references outside the managed namespace are dropped, not stored.
package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/travelog-app/server/internal/apperr"
	"github.com/travelog-app/server/internal/models"
)

const dateOnly = "2006-01-02"

type Validator struct {
	uploadURLBase string
}

func New(uploadURLBase string) *Validator {
	if !strings.HasSuffix(uploadURLBase, "/") {
		uploadURLBase += "/"
	}
	return &Validator{uploadURLBase: uploadURLBase}
}

// Entry validates fields and builds the entry to insert. uploadedPath is
// the public path of a stored attachment, or empty when the request
// carried no file; it always wins over an inline image field.
func (v *Validator) Entry(fields map[string]string, uploadedPath string) (*models.LogEntry, error) {
	title := strings.TrimSpace(fields["title"])
	if title == "" {
		return nil, apperr.Validation("title", "title is required")
	}

	visitDate, err := parseDate(fields["visitDate"])
	if err != nil {
		return nil, apperr.Validation("visitDate", err.Error())
	}

	latitude, err := parseCoordinate(fields, "latitude", 90)
	if err != nil {
		return nil, err
	}
	longitude, err := parseCoordinate(fields, "longitude", 180)
	if err != nil {
		return nil, err
	}

	rating := 0
	if raw, ok := fields["rating"]; ok && raw != "" {
		rating, err = strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.Validation("rating", fmt.Sprintf("invalid rating %q: must be an integer", raw))
		}
		if rating < 0 || rating > 10 {
			return nil, apperr.Validation("rating", fmt.Sprintf("invalid rating %d: must be between 0 and 10", rating))
		}
	}

	return &models.LogEntry{
		Title:       title,
		Comments:    fields["comments"],
		Description: fields["description"],
		Rating:      rating,
		Latitude:    latitude,
		Longitude:   longitude,
		VisitDate:   visitDate,
		Image:       v.imagePath(fields["image"], uploadedPath),
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("visitDate is required")
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid visitDate %q: expected YYYY-MM-DD", raw)
}

func parseCoordinate(fields map[string]string, name string, bound float64) (float64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, apperr.Validation(name, name+" is required")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Validation(name, fmt.Sprintf("invalid %s %q: must be a number", name, raw))
	}
	if value < -bound || value > bound {
		return 0, apperr.Validation(name, fmt.Sprintf("invalid %s %s: must be between %g and %g", name, raw, -bound, bound))
	}
	return value, nil
}

// imagePath resolves the stored image reference. An inline value that is
// neither an absolute URL nor a managed upload path is silently dropped;
// clients must not be able to point an entry at an arbitrary path.
func (v *Validator) imagePath(inline, uploadedPath string) string {
	if uploadedPath != "" {
		return uploadedPath
	}
	if strings.HasPrefix(inline, "http://") || strings.HasPrefix(inline, "https://") {
		return inline
	}
	if strings.HasPrefix(inline, v.uploadURLBase) && !strings.Contains(inline, "..") {
		return inline
	}
	return ""
}
