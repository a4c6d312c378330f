package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelog-app/server/internal/apperr"
	"github.com/travelog-app/server/internal/validate"
)

func validFields() map[string]string {
	return map[string]string{
		"title":     "Paris",
		"latitude":  "48.85",
		"longitude": "2.35",
		"visitDate": "2024-05-01",
	}
}

func TestEntryValid(t *testing.T) {
	v := validate.New("/uploads/")

	entry, err := v.Entry(validFields(), "")
	require.NoError(t, err)

	assert.Equal(t, "Paris", entry.Title)
	assert.Equal(t, 48.85, entry.Latitude)
	assert.Equal(t, 2.35, entry.Longitude)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), entry.VisitDate)
	assert.Equal(t, 0, entry.Rating)
	assert.Empty(t, entry.Image)
}

func TestEntryFieldFailures(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(map[string]string)
		wantField   string
		wantMessage []string
	}{
		{
			name:      "missing title",
			mutate:    func(f map[string]string) { delete(f, "title") },
			wantField: "title",
		},
		{
			name:      "blank title",
			mutate:    func(f map[string]string) { f["title"] = "   " },
			wantField: "title",
		},
		{
			name:        "latitude too large",
			mutate:      func(f map[string]string) { f["latitude"] = "200" },
			wantField:   "latitude",
			wantMessage: []string{"200", "-90", "90"},
		},
		{
			name:        "latitude too small",
			mutate:      func(f map[string]string) { f["latitude"] = "-90.5" },
			wantField:   "latitude",
			wantMessage: []string{"-90.5", "-90", "90"},
		},
		{
			name:        "longitude out of range",
			mutate:      func(f map[string]string) { f["longitude"] = "181" },
			wantField:   "longitude",
			wantMessage: []string{"181", "-180", "180"},
		},
		{
			name:      "latitude not numeric",
			mutate:    func(f map[string]string) { f["latitude"] = "north" },
			wantField: "latitude",
		},
		{
			name:      "missing longitude",
			mutate:    func(f map[string]string) { delete(f, "longitude") },
			wantField: "longitude",
		},
		{
			name:      "unparseable visitDate",
			mutate:    func(f map[string]string) { f["visitDate"] = "last summer" },
			wantField: "visitDate",
		},
		{
			name:      "missing visitDate",
			mutate:    func(f map[string]string) { delete(f, "visitDate") },
			wantField: "visitDate",
		},
		{
			name:      "rating not an integer",
			mutate:    func(f map[string]string) { f["rating"] = "great" },
			wantField: "rating",
		},
		{
			name:        "rating out of range",
			mutate:      func(f map[string]string) { f["rating"] = "11" },
			wantField:   "rating",
			wantMessage: []string{"11"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := validate.New("/uploads/")
			fields := validFields()
			tc.mutate(fields)

			_, err := v.Entry(fields, "")
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tc.wantField, appErr.Field)
			for _, fragment := range tc.wantMessage {
				assert.Contains(t, appErr.Message, fragment)
			}
		})
	}
}

func TestEntryBoundaryCoordinatesAccepted(t *testing.T) {
	v := validate.New("/uploads/")
	fields := validFields()
	fields["latitude"] = "-90"
	fields["longitude"] = "180"

	entry, err := v.Entry(fields, "")
	require.NoError(t, err)
	assert.Equal(t, -90.0, entry.Latitude)
	assert.Equal(t, 180.0, entry.Longitude)
}

func TestEntryVisitDateRFC3339(t *testing.T) {
	v := validate.New("/uploads/")
	fields := validFields()
	fields["visitDate"] = "2024-05-01T14:30:00Z"

	entry, err := v.Entry(fields, "")
	require.NoError(t, err)
	assert.Equal(t, 2024, entry.VisitDate.Year())
}

func TestEntryImageHandling(t *testing.T) {
	testCases := []struct {
		name     string
		inline   string
		uploaded string
		want     string
	}{
		{name: "uploaded file wins", inline: "/etc/passwd", uploaded: "/uploads/abc.jpg", want: "/uploads/abc.jpg"},
		{name: "absolute url kept", inline: "https://example.com/pic.jpg", want: "https://example.com/pic.jpg"},
		{name: "managed path kept", inline: "/uploads/xyz.png", want: "/uploads/xyz.png"},
		{name: "arbitrary path dropped", inline: "/etc/passwd", want: ""},
		{name: "traversal dropped", inline: "/uploads/../secret", want: ""},
		{name: "relative path dropped", inline: "pic.jpg", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := validate.New("/uploads/")
			fields := validFields()
			fields["image"] = tc.inline

			entry, err := v.Entry(fields, tc.uploaded)
			require.NoError(t, err, "a bad inline image is sanitized, never a hard error")
			assert.Equal(t, tc.want, entry.Image)
		})
	}
}
