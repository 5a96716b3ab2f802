package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// pollLoop runs an immediate fetch and then one per interval until the
// context is canceled. Interval updates replace the ticker in place.
func (c *Controller) pollLoop(ctx context.Context) {
	defer close(c.done)

	c.fetchOnce(ctx)

	interval := c.cfg.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-c.intervalC:
			if d != interval {
				interval = d
				ticker.Reset(interval)
			}
		case <-ticker.C:
			c.fetchOnce(ctx)
		}
	}
}

// fetchOnce builds a fresh snapshot from every datasource and replaces
// the current one wholesale. The timewindow is resolved against the
// current wall clock on every call, so rolling windows advance. A failed
// datasource keeps its previous values and raises the snapshot error
// flag; the remaining datasources still refresh.
func (c *Controller) fetchOnce(ctx context.Context) {
	type fetched struct {
		entries []models.DataEntry
		keys    []string
		failed  bool
	}

	var (
		results []fetched
		errMsg  string
	)

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

		entries, err := fetchDatasource(ctx, c.reader, ds, c.cfg.Timewindow)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"device_id": deviceID,
				"keys":      strings.Join(keyNames, ","),
			}).Warn("Widget data fetch failed")
			errMsg = "failed to fetch data"
			results = append(results, fetched{keys: keyNames, failed: true})
			continue
		}
		results = append(results, fetched{entries: entries})
	}

	c.publish(func(s *models.Snapshot) {
		previous := s.Entries
		var next []models.DataEntry
		for _, r := range results {
			if !r.failed {
				next = append(next, r.entries...)
				continue
			}
			for _, key := range r.keys {
				for i := range previous {
					if previous[i].Key == key {
						next = append(next, previous[i])
						break
					}
				}
			}
		}
		s.Entries = next
		s.Loading = false
		s.Error = errMsg
	})
}

// fetchDatasource performs one synchronous read for a datasource,
// routed by its first key's type.
func fetchDatasource(ctx context.Context, reader interfaces.TelemetryReader, ds *models.Datasource, tw *models.Timewindow) ([]models.DataEntry, error) {
	deviceID := ds.TargetID()
	names := make([]string, 0, len(ds.DataKeys))
	for _, dk := range ds.DataKeys {
		names = append(names, dk.Name)
	}

	if ds.KeyType() == models.KeyTypeAttribute {
		attrs, err := reader.ReadLatestAttributes(ctx, deviceID, AttributeScope, names)
		if err != nil {
			return nil, err
		}
		byKey := make(map[string]models.AttributeValue, len(attrs))
		for _, a := range attrs {
			byKey[a.Key] = a
		}
		entries := make([]models.DataEntry, 0, len(ds.DataKeys))
		for _, dk := range ds.DataKeys {
			entry := models.DataEntry{Key: dk.Name, Label: dk.DisplayLabel()}
			if a, ok := byKey[dk.Name]; ok {
				entry.Values = []models.TsValue{{Ts: a.LastUpdateTs, Value: a.Value}}
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}

	startTs, endTs := tw.Resolve(time.Now())
	data, err := reader.ReadTimeseries(ctx, deviceID, names, startTs, endTs)
	if err != nil {
		return nil, err
	}
	entries := make([]models.DataEntry, 0, len(ds.DataKeys))
	for _, dk := range ds.DataKeys {
		entries = append(entries, models.DataEntry{
			Key:    dk.Name,
			Label:  dk.DisplayLabel(),
			Values: data[dk.Name],
		})
	}
	return entries, nil
}

// FetchSnapshot performs one synchronous snapshot fetch outside any
// controller lifecycle, for request/response callers.
func FetchSnapshot(ctx context.Context, reader interfaces.TelemetryReader, datasources []*models.Datasource, tw *models.Timewindow) models.Snapshot {
	snap := models.Snapshot{}
	for _, ds := range datasources {
		if len(ds.DataKeys) == 0 || ds.TargetID() == "" {
			continue
		}
		entries, err := fetchDatasource(ctx, reader, ds, tw)
		if err != nil {
			snap.Error = "failed to fetch data"
			continue
		}
		snap.Entries = append(snap.Entries, entries...)
	}
	return snap
}
