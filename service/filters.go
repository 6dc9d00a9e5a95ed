package service

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"cmrp/models"
)

const dateLayout = "2006-01-02"

// ParseComplaintFilter reads listing filters from a query string. Malformed values
// are dropped rather than rejected; paging falls back to the defaults.
func ParseComplaintFilter(q url.Values) models.ComplaintFilter {
	f := models.ComplaintFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Zone:     strings.TrimSpace(q.Get("zone")),
		Page:     models.DefaultPage,
		PageSize: models.DefaultPageSize,
	}

	f.Status = ParseStatusFilter(q.Get("status"))

	if raw := strings.TrimSpace(q.Get("has_location")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.HasLocation = &v
		}
	}

	f.From = parseDate(q.Get("from_date"), false)
	f.To = parseDate(q.Get("to_date"), true)

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		f.PageSize = v
	}
	if f.PageSize > models.MaxPageSize {
		f.PageSize = models.MaxPageSize
	}
	return f
}

// ParseStatusFilter returns nil for a blank or unknown status
func ParseStatusFilter(raw string) *models.ComplaintStatus {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	st, err := models.ParseStatus(raw)
	if err != nil {
		return nil
	}
	return &st
}

// parseDate accepts YYYY-MM-DD or RFC3339. A bare date used as an upper bound
// covers the whole day.
func parseDate(raw string, endOfDay bool) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t
}
