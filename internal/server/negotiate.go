package server

import (
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// requestFormat picks the format of the request body from Content-Type.
// A missing header selects def.
func requestFormat(r *http.Request, def gorkson.Format) (gorkson.Format, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return def, true
	}
	return gorkson.FormatByContentType(ct)
}

type acceptRange struct {
	mediaType string
	q         float64
}

// responseFormat picks the response format from Accept, honouring quality
// values. A missing header or a wildcard selects def.
func responseFormat(r *http.Request, def gorkson.Format) (gorkson.Format, bool) {
	header := r.Header.Get("Accept")
	if strings.TrimSpace(header) == "" {
		return def, true
	}

	var ranges []acceptRange
	for _, part := range strings.Split(header, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		if q > 0 {
			ranges = append(ranges, acceptRange{mediaType: mediaType, q: q})
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })

	for _, ar := range ranges {
		switch ar.mediaType {
		case "*/*", "application/*":
			return def, true
		}
		if f, ok := gorkson.FormatByContentType(ar.mediaType); ok {
			return f, true
		}
	}
	return nil, false
}
