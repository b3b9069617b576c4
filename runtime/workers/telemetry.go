package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"keychat/observability"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// TelemetryWorker periodically logs a stats snapshot and the fill level of
// the watched channels. Reading len and cap of a channel never blocks.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	snapshot func() observability.Snapshot
	channels []NamedChannel
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, snapshot func() observability.Snapshot, channels ...NamedChannel) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, snapshot: snapshot, channels: channels}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.report()
			w.reportChannels()
		}
	}
}

func (w *TelemetryWorker) report() {
	s := w.snapshot()
	w.log.Info("Relay stats",
		"rooms", len(s.Rooms),
		"members", s.Members,
		"admitted", s.Admitted,
		"rejected", s.Rejected,
		"oracle_failures", s.OracleFailures,
		"relayed", s.Relayed,
		"dropped", s.Dropped,
		"rss_bytes", s.Process.RSSBytes,
		"cpu_percent", s.Process.CPUPercent,
		"goroutines", s.Process.Goroutines,
	)
}

func (w *TelemetryWorker) reportChannels() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		w.log.Debug("Channel capacity", "name", nc.Name, "length", v.Len(), "capacity", v.Cap())
	}
}
