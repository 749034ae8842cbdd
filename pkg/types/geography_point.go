package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errBadPoint = errors.New("geography: unrecognised point text")

// GeographyPoint is a WGS84 coordinate. It is stored in a text column as
// EWKT so the same rows load on postgres and sqlite.
type GeographyPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewGeographyPoint validates the coordinate ranges.
func NewGeographyPoint(lat, lng float64) (*GeographyPoint, error) {
	p := GeographyPoint{Lat: lat, Lng: lng}
	if !p.Valid() {
		return nil, fmt.Errorf("geography: coordinate out of range (%f, %f)", lat, lng)
	}
	return &p, nil
}

// Valid reports whether the coordinate is finite and within WGS84 bounds.
func (g GeographyPoint) Valid() bool {
	return inRange(g.Lat, 90) && inRange(g.Lng, 180)
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// String renders the "lat, lng" form shown when no address is known.
func (g GeographyPoint) String() string {
	return fmt.Sprintf("%.6f, %.6f", g.Lat, g.Lng)
}

// Value writes SRID=4326;POINT(lng lat).
func (g GeographyPoint) Value() (driver.Value, error) {
	return fmt.Sprintf("SRID=4326;POINT(%f %f)", g.Lng, g.Lat), nil
}

// Scan reads EWKT, bare WKT, or the legacy "lat, lng" text some rows were
// written with.
func (g *GeographyPoint) Scan(value any) error {
	var text string
	switch v := value.(type) {
	case nil:
		*g = GeographyPoint{}
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("geography: unsupported scan type %T", value)
	}
	p, err := ParseGeographyPoint(text)
	if err != nil {
		return err
	}
	*g = p
	return nil
}

// ParseGeographyPoint accepts the same forms as Scan.
func ParseGeographyPoint(text string) (GeographyPoint, error) {
	text = strings.TrimSpace(text)
	if _, rest, ok := strings.Cut(text, ";"); ok && strings.HasPrefix(strings.ToUpper(text), "SRID=") {
		text = strings.TrimSpace(rest)
	}

	var first, second string
	if upper := strings.ToUpper(text); strings.HasPrefix(upper, "POINT(") && strings.HasSuffix(text, ")") {
		fields := strings.Fields(text[len("POINT(") : len(text)-1])
		if len(fields) != 2 {
			return GeographyPoint{}, errBadPoint
		}
		// WKT is x y, i.e. lng lat
		first, second = fields[1], fields[0]
	} else {
		var ok bool
		if first, second, ok = strings.Cut(text, ","); !ok {
			return GeographyPoint{}, errBadPoint
		}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return GeographyPoint{}, fmt.Errorf("geography: latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(second), 64)
	if err != nil {
		return GeographyPoint{}, fmt.Errorf("geography: longitude: %w", err)
	}
	return GeographyPoint{Lat: lat, Lng: lng}, nil
}
