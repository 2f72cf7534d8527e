package dha

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// legacyNode is one node in the legacy node/way JSON grid description,
// geographic coordinates (lat/lon degrees).
type legacyNode struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// legacyWay is one way: an ordered list of node ids plus OSM-style power
// tags. Only power values in {line, cable, minor_line, substation} are
// honored (§9 Open Question); any other value is logged at warn and
// skipped.
type legacyWay struct {
	ID    string            `json:"id"`
	Nodes []string          `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type legacyDocument struct {
	Nodes []legacyNode `json:"nodes"`
	Ways  []legacyWay  `json:"ways"`
}

var honoredPowerTags = map[string]bool{
	"line": true, "cable": true, "minor_line": true, "substation": true,
}

// originLat/originLon anchor a local equirectangular projection; no GIS
// reprojection library appears anywhere in the retrieved corpus, so an
// equirectangular approximation (adequate at street-cluster scale, a few
// hundred meters across) is used here instead, per the ambient-stack
// standard-library-fallback policy.
const metersPerDegreeLat = 111_320.0

func projectLatLon(lat, lon, originLat, originLon float64) (x, y float64) {
	y = (lat - originLat) * metersPerDegreeLat
	x = (lon - originLon) * metersPerDegreeLat * math.Cos(originLat*math.Pi/180)
	return x, y
}

// ParseLegacyJSON converts a legacy node/way JSON description into
// RawLine rows in a projected local frame anchored at the first node.
// Unhonored power tags are skipped with a warning; ways are treated as
// two-node line segments (each consecutive node pair in a multi-node way
// becomes its own RawLine).
func ParseLegacyJSON(data []byte, log zerolog.Logger) ([]RawLine, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dha: legacy JSON parse failed: %w", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("dha: legacy JSON has no nodes")
	}
	originLat, originLon := doc.Nodes[0].Lat, doc.Nodes[0].Lon

	byID := make(map[string]legacyNode, len(doc.Nodes))
	for _, n := range doc.Nodes {
		byID[n.ID] = n
	}

	var lines []RawLine
	for _, w := range doc.Ways {
		tag := w.Tags["power"]
		if !honoredPowerTags[tag] {
			log.Warn().Str("way_id", w.ID).Str("power_tag", tag).Msg("skipping unhonored legacy power tag")
			continue
		}
		for i := 0; i+1 < len(w.Nodes); i++ {
			a, aok := byID[w.Nodes[i]]
			b, bok := byID[w.Nodes[i+1]]
			if !aok || !bok {
				continue
			}
			ax, ay := projectLatLon(a.Lat, a.Lon, originLat, originLon)
			bx, by := projectLatLon(b.Lat, b.Lon, originLat, originLon)
			lines = append(lines, RawLine{
				ID:    fmt.Sprintf("%s_%d", w.ID, i),
				FromX: ax, FromY: ay, ToX: bx, ToY: by,
			})
		}
	}
	return lines, nil
}
