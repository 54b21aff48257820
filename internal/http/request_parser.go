package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventbudget/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

var errInvalidBody = core.BadRequest("Invalid request body.")

// decodeJSON reads one JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return core.Failure(http.StatusRequestEntityTooLarge, "Request body is too large.")
		case errors.Is(err, io.EOF):
			return core.BadRequest("Request body is required.")
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				return core.BadRequest("Invalid value for field '%s'.", typeErr.Field)
			}
			var dateErr *dateError
			if errors.As(err, &dateErr) {
				return core.BadRequest("%s", dateErr.Error())
			}
			return errInvalidBody
		}
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.BadRequest("Invalid %s '%s'.", name, raw)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter. Absent or empty
// values yield nil.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, core.BadRequest("Query parameter '%s' must be true or false.", name)
	}
	return &v, nil
}

// jsonDate accepts "2006-01-02" or RFC 3339 timestamps and always encodes as
// RFC 3339 in UTC.
type jsonDate struct {
	time.Time
}

type dateError struct {
	value string
}

func (e *dateError) Error() string {
	return fmt.Sprintf("Invalid date '%s'. Use YYYY-MM-DD or RFC 3339.", e.value)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// Date-time without a zone, as browsers send from datetime-local inputs.
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Time{}, &dateError{value: s}
}

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &dateError{value: string(b)}
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d jsonDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

// timePtr converts an optional request date.
func timePtr(d *jsonDate) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func timeValue(d *jsonDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
