package backend

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LogQuery builds the common /api/logs parameters. Anything the backend
// accepts beyond these goes in Extra and is forwarded untouched.
type LogQuery struct {
	Type     string // "system" or "docker"
	Lines    int
	Level    string
	Since    time.Time
	Until    time.Time
	Page     int
	PageSize int
	Extra    url.Values
}

// Values encodes the query for FetchLogs.
func (q LogQuery) Values() url.Values {
	values := url.Values{}
	for key, vals := range q.Extra {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	if t := strings.TrimSpace(q.Type); t != "" {
		values.Set("type", t)
	}
	if q.Lines > 0 {
		values.Set("lines", strconv.Itoa(q.Lines))
	}
	if level := strings.TrimSpace(q.Level); level != "" {
		values.Set("level", level)
	}
	if !q.Since.IsZero() {
		values.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		values.Set("until", q.Until.UTC().Format(time.RFC3339))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return values
}
