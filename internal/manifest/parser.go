package manifest

import (
	"strconv"
	"strings"
)

const (
	extInfTag  = "#EXTINF:"
	endListTag = "#EXT-X-ENDLIST"

	// headerLines is the fixed metadata region at the top of a media
	// playlist (#EXTM3U, version, target duration, media sequence, type).
	headerLines = 5
)

// Parse turns raw playlist text into an ordered segment list.
//
// Parsing rules:
//   - the fixed header region is skipped
//   - an #EXTINF tag supplies the duration for the next segment line
//   - a non-tag, non-empty line closes the current segment; relative
//     locations are resolved against the manifest base (the manifest URL
//     with its filename stripped)
//   - #EXT-X-ENDLIST terminates scanning even if more lines follow
//   - any other tag is ignored
//
// Returns a *ParseError when an #EXTINF duration is not numeric.
func Parse(data, manifestURL string) ([]Segment, error) {
	base := baseOf(manifestURL)

	var segments []Segment
	var duration float64

	for idx, raw := range strings.Split(data, "\n") {
		if idx < headerLines {
			continue
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			switch {
			case strings.HasPrefix(line, extInfTag):
				d, err := parseDuration(line)
				if err != nil {
					return nil, &ParseError{Line: idx + 1, Value: line}
				}
				duration = d
			case line == endListTag:
				return segments, nil
			}
			continue
		}

		segments = append(segments, Segment{
			URL:      resolve(base, line),
			Duration: duration,
		})
		duration = 0
	}

	return segments, nil
}

// parseDuration extracts the numeric value of an #EXTINF tag.
// The tag has the shape "#EXTINF:<seconds>,<optional title>".
func parseDuration(line string) (float64, error) {
	value := strings.TrimPrefix(line, extInfTag)
	if i := strings.Index(value, ","); i >= 0 {
		value = value[:i]
	}
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// baseOf strips the filename from a manifest URL, keeping the trailing
// slash so segment names can be appended directly.
func baseOf(manifestURL string) string {
	if i := strings.LastIndex(manifestURL, "/"); i >= 0 {
		return manifestURL[:i+1]
	}
	return manifestURL
}

// resolve forms the absolute segment URL. Lines that already carry a
// scheme are used as-is.
func resolve(base, line string) string {
	if strings.Contains(line, "://") {
		return line
	}
	return base + line
}
