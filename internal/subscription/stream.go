package subscription

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// startStreaming opens one stream subscription per datasource. A
// datasource whose first key is attribute-typed subscribes to attribute
// updates; everything else subscribes to telemetry with the widget's
// realtime window. Handles are retained for release on Stop.
func (c *Controller) startStreaming() error {
	if c.stream == nil {
		return errors.NewSubscriptionError(errors.CodeSubscribeFailed, "no stream channel configured")
	}

	labels := make(map[string]string)
	for _, ds := range c.cfg.Datasources {
		for _, dk := range ds.DataKeys {
			labels[dk.Name] = dk.DisplayLabel()
		}
	}

	windowMs := int64(DefaultStreamWindowMs)
	if c.cfg.Timewindow != nil && c.cfg.Timewindow.Realtime != nil && c.cfg.Timewindow.Realtime.TimewindowMs > 0 {
		windowMs = c.cfg.Timewindow.Realtime.TimewindowMs
	}

	for _, ds := range c.cfg.Datasources {
		if len(ds.DataKeys) == 0 {
			continue
		}
		deviceID := ds.TargetID()
		if deviceID == "" {
			continue
		}

		keyNames := make([]string, 0, len(ds.DataKeys))
		for _, dk := range ds.DataKeys {
			keyNames = append(keyNames, dk.Name)
		}

		spec := interfaces.StreamSpec{
			EntityType: "DEVICE",
			EntityID:   deviceID,
			Keys:       strings.Join(keyNames, ","),
		}
		if ds.KeyType() == models.KeyTypeAttribute {
			spec.Scope = AttributeScope
		} else {
			spec.TimeWindowMs = windowMs
		}

		handle, err := c.stream.Subscribe(spec, func(msg interfaces.StreamMessage) {
			c.mergeStreamed(msg, labels)
		})
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"device_id": deviceID,
				"keys":      spec.Keys,
			}).Error("Stream subscribe failed")
			return errors.WrapError(err, errors.ErrorTypeSubscription, errors.CodeSubscribeFailed, "stream subscribe failed")
		}

		c.mu.Lock()
		c.handles = append(c.handles, handle)
		c.mu.Unlock()
	}
	return nil
}

// mergeStreamed folds one pushed update into the snapshot. New points
// append to their key's series, the series re-sorts ascending by
// timestamp and truncates to the newest MaxPointsPerKey points. Keys not
// seen before gain a fresh entry.
func (c *Controller) mergeStreamed(msg interfaces.StreamMessage, labels map[string]string) {
	if len(msg.Data) == 0 {
		return
	}
	c.publish(func(s *models.Snapshot) {
		for key, values := range msg.Data {
			if len(values) == 0 {
				continue
			}
			entry := s.Entry(key)
			if entry == nil {
				label := labels[key]
				if label == "" {
					label = key
				}
				s.Entries = append(s.Entries, models.DataEntry{Key: key, Label: label})
				entry = &s.Entries[len(s.Entries)-1]
			}
			merged := append(entry.Values, values...)
			sort.Slice(merged, func(i, j int) bool { return merged[i].Ts < merged[j].Ts })
			if len(merged) > MaxPointsPerKey {
				merged = merged[len(merged)-MaxPointsPerKey:]
			}
			entry.Values = merged
		}
		s.Loading = false
		s.Error = ""
	})
}
