package widgets

import (
	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Marker is one plotted device position.
type Marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// MapView is the payload of the map widget: markers from the configured
// latitude/longitude keys, a center and a zoom level. With no valid
// position the center falls back to the configured default.
type MapView struct {
	Markers   []Marker   `json:"markers"`
	Center    [2]float64 `json:"center"`
	ZoomLevel float64    `json:"zoomLevel"`
}

type mapRenderer struct{}

func (mapRenderer) Render(w *models.Widget, snap *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	latKey := settings.str("latitudeKey", "latitude")
	lngKey := settings.str("longitudeKey", "longitude")
	labelKey := settings.str("labelKey", "label")

	view := &MapView{
		Center: [2]float64{
			settings.number("defaultCenterLatitude", 0),
			settings.number("defaultCenterLongitude", 0),
		},
		ZoomLevel: settings.number("defaultZoomLevel", 10),
	}

	if snap != nil {
		latVal, latOK := snap.Latest(latKey)
		lngVal, lngOK := snap.Latest(lngKey)
		if latOK && lngOK {
			lat, latNum := parseNumber(latVal.Value)
			lng, lngNum := parseNumber(lngVal.Value)
			if latNum && lngNum {
				marker := Marker{Lat: lat, Lng: lng}
				if labelVal, ok := snap.Latest(labelKey); ok {
					marker.Label = labelVal.Value
				}
				view.Markers = append(view.Markers, marker)
				view.Center = [2]float64{lat, lng}
			}
		}
	}
	return &registry.RenderResult{Kind: "map", Payload: view}, nil
}
