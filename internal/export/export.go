// Package export renders contract and decision artifacts into
// GIS-friendly output formats (§6 outputs). Non-goals §1 excludes a full
// GIS toolchain, so the core only depends on the Exporter interface; a
// real GeoPackage writer can be swapped in later without touching any
// caller.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/muniheat/dhcore/internal/contract"
)

// ErrNotImplemented is returned by exporters that declare a format but
// carry no working writer yet.
var ErrNotImplemented = errors.New("export format not implemented")

// Feature is one exportable geometry feature: a cluster's plant/building
// point or trunk/LV-line geometry, tagged with the contract fields a
// caller wants visible in a GIS attribute table.
type Feature struct {
	ID         string
	Kind       string // "building", "plant", "pipe", "line"
	X, Y       float64
	X2, Y2     float64 // second endpoint, for line features; zero for points
	Properties map[string]string
}

// Exporter renders a cluster's contract plus a feature set to w in a
// GIS-adjacent format.
type Exporter interface {
	Export(w io.Writer, c *contract.Contract, features []Feature) error
	Format() string
}

// CSVExporter is the default, dependency-free exporter: one row per
// feature plus the contract's headline KPIs repeated on every row, so
// the file opens directly in any spreadsheet or GIS "join by attribute"
// workflow without a schema.
type CSVExporter struct{}

func (CSVExporter) Format() string { return "csv" }

func (CSVExporter) Export(w io.Writer, c *contract.Contract, features []Feature) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"cluster_id", "feature_id", "kind", "x", "y", "x2", "y2", "choice", "dh_lcoh_median", "hp_lcoh_median"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, f := range features {
		row := []string{
			c.ClusterID, f.ID, f.Kind,
			strconv.FormatFloat(f.X, 'f', -1, 64),
			strconv.FormatFloat(f.Y, 'f', -1, 64),
			strconv.FormatFloat(f.X2, 'f', -1, 64),
			strconv.FormatFloat(f.Y2, 'f', -1, 64),
			"", // choice: left empty, Export receives no decision result
			strconv.FormatFloat(c.DistrictHeating.LCOH.Median, 'f', -1, 64),
			strconv.FormatFloat(c.HeatPumps.LCOH.Median, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// geoJSONGeometry is either a Point or a LineString, per RFC 7946.
type geoJSONGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// GeoJSONExporter writes a plain RFC 7946 FeatureCollection: points for
// buildings/plants, two-point LineStrings for pipes/LV lines. No
// external GIS library is used — the format is simple enough to encode
// directly with encoding/json.
type GeoJSONExporter struct{}

func (GeoJSONExporter) Format() string { return "geojson" }

func (GeoJSONExporter) Export(w io.Writer, c *contract.Contract, features []Feature) error {
	fc := geoJSONCollection{Type: "FeatureCollection"}
	for _, f := range features {
		geom := geoJSONGeometry{Type: "Point", Coordinates: []float64{f.X, f.Y}}
		if f.Kind == "pipe" || f.Kind == "line" {
			geom = geoJSONGeometry{Type: "LineString", Coordinates: [][]float64{{f.X, f.Y}, {f.X2, f.Y2}}}
		}
		props := map[string]interface{}{
			"cluster_id": c.ClusterID,
			"feature_id": f.ID,
			"kind":       f.Kind,
		}
		for k, v := range f.Properties {
			props[k] = v
		}
		fc.Features = append(fc.Features, geoJSONFeature{Type: "Feature", Geometry: geom, Properties: props})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// GeoPackageExporter declares the interface a real OGC GeoPackage writer
// would satisfy; §1's Non-goals exclude building a GIS format stack, so
// this stub always fails with ErrNotImplemented rather than emitting a
// malformed file.
type GeoPackageExporter struct{}

func (GeoPackageExporter) Format() string { return "gpkg" }

func (GeoPackageExporter) Export(w io.Writer, c *contract.Contract, features []Feature) error {
	return fmt.Errorf("%w: geopackage export for cluster %s", ErrNotImplemented, c.ClusterID)
}
