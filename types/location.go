package types

import (
	"fmt"
	"strconv"
	"strings"
)

// A Location is the geographic metadata of a location message.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  int // Accuracy radius in meters, zero if unknown.
	IsLive    bool

	// Optional fields for named locations.
	Name    string
	Address string
	URL     string
}

// IsZero reports whether no coordinates are set.
func (l Location) IsZero() bool {
	return l.Latitude == 0 && l.Longitude == 0
}

// URI renders the location as a geo URI (RFC 5870), including the accuracy
// as the "u" uncertainty parameter when known.
func (l Location) URI() string {
	var b strings.Builder
	b.WriteString("geo:")
	b.WriteString(strconv.FormatFloat(l.Latitude, 'f', -1, 64))
	b.WriteString(",")
	b.WriteString(strconv.FormatFloat(l.Longitude, 'f', -1, 64))
	if l.Accuracy > 0 {
		fmt.Fprintf(&b, ";u=%d", l.Accuracy)
	}
	return b.String()
}

// ParseGeoURI extracts a Location from a geo URI-shaped message body.
// Returns a zero Location and false if the body is not a parseable geo URI.
func ParseGeoURI(body string) (Location, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(body), "geo:")
	if !found {
		return Location{}, false
	}

	coords, params, _ := strings.Cut(rest, ";")
	lat, lon, found := strings.Cut(coords, ",")
	if !found {
		return Location{}, false
	}
	// A third coordinate (altitude) is legal; ignore it.
	if i := strings.Index(lon, ","); i >= 0 {
		lon = lon[:i]
	}

	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Location{}, false
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return Location{}, false
	}

	loc := Location{Latitude: latitude, Longitude: longitude}
	for _, p := range strings.Split(params, ";") {
		if v, ok := strings.CutPrefix(p, "u="); ok {
			if u, err := strconv.ParseFloat(v, 64); err == nil {
				loc.Accuracy = int(u)
			}
		}
	}
	return loc, true
}
