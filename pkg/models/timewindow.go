package models

import "time"

// DefaultTimewindowMs is the rolling window applied when a widget declares
// no timewindow at all.
const DefaultTimewindowMs = 3600000

// Timewindow selects the time range a widget's data reflects: a rolling
// realtime duration ending "now", or a historical range. Exactly one form
// is active; realtime wins when both are present.
type Timewindow struct {
	Realtime *RealtimeWindow `json:"realtime,omitempty"`
	History  *HistoryWindow  `json:"history,omitempty"`
}

// RealtimeWindow is a rolling duration ending at resolution time.
type RealtimeWindow struct {
	TimewindowMs int64 `json:"timewindowMs,omitempty"`
	Interval     int64 `json:"interval,omitempty"`
}

// HistoryWindow is either a fixed range or a rolling duration anchored at
// resolution time.
type HistoryWindow struct {
	TimewindowMs    int64        `json:"timewindowMs,omitempty"`
	FixedTimewindow *FixedWindow `json:"fixedTimewindow,omitempty"`
}

// FixedWindow is an absolute historical range in epoch milliseconds.
type FixedWindow struct {
	StartTimeMs int64 `json:"startTimeMs"`
	EndTimeMs   int64 `json:"endTimeMs"`
}

// Resolve computes the effective [startTs, endTs] range in epoch
// milliseconds at the given instant. Fixed windows are used verbatim;
// rolling windows are recomputed fresh relative to now on every call.
func (tw *Timewindow) Resolve(now time.Time) (startTs, endTs int64) {
	nowMs := now.UnixMilli()
	if tw != nil && tw.History != nil && tw.History.FixedTimewindow != nil {
		return tw.History.FixedTimewindow.StartTimeMs, tw.History.FixedTimewindow.EndTimeMs
	}
	var ms int64
	if tw != nil && tw.Realtime != nil && tw.Realtime.TimewindowMs > 0 {
		ms = tw.Realtime.TimewindowMs
	} else if tw != nil && tw.History != nil && tw.History.TimewindowMs > 0 {
		ms = tw.History.TimewindowMs
	} else {
		ms = DefaultTimewindowMs
	}
	return nowMs - ms, nowMs
}
