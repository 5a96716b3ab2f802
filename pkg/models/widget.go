package models

// WidgetCategory is the coarse classification a widget carries in its
// `type` field. It selects the dispatch fallback when the concrete
// registry type cannot be resolved.
type WidgetCategory string

const (
	CategoryTimeseries WidgetCategory = "timeseries"
	CategoryLatest     WidgetCategory = "latest"
	CategoryRPC        WidgetCategory = "rpc"
	CategoryAlarm      WidgetCategory = "alarm"
	CategoryStatic     WidgetCategory = "static"
)

// Widget is one visual unit on the dashboard. Identity is immutable once
// created; only title, geometry and config mutate.
type Widget struct {
	ID          string         `json:"id"`
	TypeFullFqn string         `json:"typeFullFqn,omitempty"`
	Type        WidgetCategory `json:"type"`
	Title       string         `json:"title,omitempty"`
	SizeX       int            `json:"sizeX"`
	SizeY       int            `json:"sizeY"`
	Row         int            `json:"row"`
	Col         int            `json:"col"`
	Config      *WidgetConfig  `json:"config,omitempty"`
}

// WidgetConfig holds the widget's datasources, display options and the
// free-form settings bag. Settings content is owned by the concrete widget
// type; the engine passes it through untouched.
type WidgetConfig struct {
	Title           string                 `json:"title,omitempty"`
	ShowTitle       bool                   `json:"showTitle,omitempty"`
	BackgroundColor string                 `json:"backgroundColor,omitempty"`
	Color           string                 `json:"color,omitempty"`
	Padding         string                 `json:"padding,omitempty"`
	Margin          string                 `json:"margin,omitempty"`
	Settings        map[string]interface{} `json:"settings,omitempty"`
	Datasources     []*Datasource          `json:"datasources,omitempty"`
	Timewindow      *Timewindow            `json:"timewindow,omitempty"`
}

// DataKeyType classifies how one key is fetched.
type DataKeyType string

const (
	KeyTypeTimeseries DataKeyType = "timeseries"
	KeyTypeAttribute  DataKeyType = "attribute"
)

// DataKey is one telemetry or attribute key plus its display metadata.
type DataKey struct {
	Name     string      `json:"name"`
	Type     DataKeyType `json:"type"`
	Label    string      `json:"label,omitempty"`
	Color    string      `json:"color,omitempty"`
	Units    string      `json:"units,omitempty"`
	Decimals *int        `json:"decimals,omitempty"`
}

// DisplayLabel returns the key's label, falling back to its name.
func (k *DataKey) DisplayLabel() string {
	if k.Label != "" {
		return k.Label
	}
	return k.Name
}

// Datasource binds a widget to one device's selected keys.
type Datasource struct {
	Type          string     `json:"type"`
	DeviceID      string     `json:"deviceId,omitempty"`
	EntityAliasID string     `json:"entityAliasId,omitempty"`
	EntityType    string     `json:"entityType,omitempty"`
	EntityID      string     `json:"entityId,omitempty"`
	Name          string     `json:"name,omitempty"`
	DataKeys      []*DataKey `json:"dataKeys,omitempty"`
}

// TargetID returns the device id the datasource points at, accepting the
// legacy entityId field as an alias.
func (d *Datasource) TargetID() string {
	if d.DeviceID != "" {
		return d.DeviceID
	}
	return d.EntityID
}

// KeyType reports the fetch strategy for the whole datasource. The first
// declared key's type decides for every key, including mixed-key
// datasources; keys without a type count as time-series.
func (d *Datasource) KeyType() DataKeyType {
	if len(d.DataKeys) == 0 || d.DataKeys[0].Type == "" {
		return KeyTypeTimeseries
	}
	return d.DataKeys[0].Type
}
