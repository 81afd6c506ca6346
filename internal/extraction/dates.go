package extraction

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2006-01-02", // yyyy-MM-dd
	"01/02/2006", // MM/dd/yyyy
	"02-01-2006", // dd-MM-yyyy
	"02/01/2006", // dd/MM/yyyy
}

// ParseDate parses s against the supported date layouts.
// The second return value is false when no layout matches.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}
