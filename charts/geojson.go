package charts

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/ufotracker/tracker/sighting"
)

// SightingsFeatureCollection turns sightings into GeoJSON points. Sightings
// without usable coordinates are left out.
func SightingsFeatureCollection(sightings []sighting.Sighting) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range sightings {
		if !plottable(s) {
			continue
		}
		f := geojson.NewPointFeature([]float64{s.Lng, s.Lat})
		f.ID = s.ID
		f.SetProperty("label", s.Label())
		f.SetProperty("city", s.City)
		f.SetProperty("state", s.State)
		f.SetProperty("country", s.Country)
		f.SetProperty("shape", s.Shape)
		f.SetProperty("color", sighting.ShapeColor(s.Shape))
		f.SetProperty("duration", s.Duration)
		f.SetProperty("summary", s.Summary)
		f.SetProperty("datetime", s.Time.String())
		fc.AddFeature(f)
	}
	return fc
}
