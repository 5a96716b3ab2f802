package models

// TsValue is one timestamped telemetry value. Values travel as strings end
// to end, matching the wire format of the telemetry APIs; widgets parse
// them as needed.
type TsValue struct {
	Ts    int64  `json:"ts"`
	Value string `json:"value"`
}

// AttributeValue is one point-in-time attribute with its last update time.
type AttributeValue struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	LastUpdateTs int64  `json:"lastUpdateTs"`
}

// DataEntry is one key's resolved series inside a widget data snapshot.
type DataEntry struct {
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	Values []TsValue `json:"values"`
}

// Snapshot is the full keyed value set a subscription delivers to its
// widget, plus the loading/error flags for display.
type Snapshot struct {
	Entries []DataEntry `json:"entries"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
}

// Entry returns the snapshot entry for key, or nil.
func (s *Snapshot) Entry(key string) *DataEntry {
	for i := range s.Entries {
		if s.Entries[i].Key == key {
			return &s.Entries[i]
		}
	}
	return nil
}

// Latest returns the most recent value for key and whether one exists.
func (s *Snapshot) Latest(key string) (TsValue, bool) {
	e := s.Entry(key)
	if e == nil || len(e.Values) == 0 {
		return TsValue{}, false
	}
	return e.Values[len(e.Values)-1], true
}

// RPCRequest is one device command.
type RPCRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// RPCResponse carries the reply of a two-way command.
type RPCResponse struct {
	Result map[string]interface{} `json:"result,omitempty"`
}
