package interfaces

import "github.com/marcuslam20/thingsboard-server-sub000/pkg/models"

// StreamMessage is one inbound update on a streaming subscription: new
// points per key, to be merged into the subscriber's series.
type StreamMessage struct {
	SubscriptionID int                         `json:"subscriptionId"`
	Data           map[string][]models.TsValue `json:"data"`
}

// StreamSpec identifies what one logical subscription watches. Keys are
// comma-separated names; Scope is set for attribute subscriptions and
// TimeWindowMs for telemetry ones.
type StreamSpec struct {
	EntityType   string
	EntityID     string
	Keys         string
	Scope        string
	TimeWindowMs int64
}

// SubscriptionHandle identifies one open subscription for release.
type SubscriptionHandle int

// StreamChannel is the persistent push transport for telemetry delivery.
// Every handle returned by Subscribe must eventually be passed to
// Unsubscribe; leaked handles keep delivering into dead callbacks.
type StreamChannel interface {
	Subscribe(spec StreamSpec, onMessage func(StreamMessage)) (SubscriptionHandle, error)
	Unsubscribe(handle SubscriptionHandle) error
}
