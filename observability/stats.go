package observability

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"keychat/domain"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
)

// Stats aggregates the relay counters fed by the stats sink.
type Stats struct {
	startedAt time.Time

	Admitted       uint64
	Disconnected   uint64
	Relayed        uint64
	Delivered      uint64
	Dropped        uint64
	OracleFailures uint64
	rejected       map[domain.RejectionReason]*uint64
}

// Snapshot is the JSON document served on /stats and logged by telemetry.
type Snapshot struct {
	UptimeSeconds  int64             `json:"uptime_seconds"`
	Rooms          map[string]int    `json:"rooms"`
	Members        int               `json:"members"`
	Admitted       uint64            `json:"admitted"`
	Rejected       map[string]uint64 `json:"rejected"`
	OracleFailures uint64            `json:"oracle_failures"`
	Disconnected   uint64            `json:"disconnected"`
	Relayed        uint64            `json:"relayed"`
	Delivered      uint64            `json:"delivered"`
	Dropped        uint64            `json:"dropped"`
	Process        ProcessStats      `json:"process"`
}

type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	AllocBytes uint64  `json:"alloc_bytes"`
	NumGC      uint32  `json:"num_gc"`
}

func NewStats() *Stats {
	rejected := make(map[domain.RejectionReason]*uint64, len(domain.RejectionReasons))
	for _, reason := range domain.RejectionReasons {
		rejected[reason] = new(uint64)
	}
	return &Stats{startedAt: time.Now(), rejected: rejected}
}

func (s *Stats) IncrAdmitted() {
	atomic.AddUint64(&s.Admitted, 1)
}

func (s *Stats) IncrRejected(reason domain.RejectionReason, oracleFailure bool) {
	if counter, ok := s.rejected[reason]; ok {
		atomic.AddUint64(counter, 1)
	}
	if oracleFailure {
		atomic.AddUint64(&s.OracleFailures, 1)
	}
}

func (s *Stats) IncrDisconnected() {
	atomic.AddUint64(&s.Disconnected, 1)
}

func (s *Stats) AddRelayed(delivered int) {
	atomic.AddUint64(&s.Relayed, 1)
	atomic.AddUint64(&s.Delivered, uint64(delivered))
}

func (s *Stats) IncrDropped() {
	atomic.AddUint64(&s.Dropped, 1)
}

func (s *Stats) Rejected(reason domain.RejectionReason) uint64 {
	if counter, ok := s.rejected[reason]; ok {
		return atomic.LoadUint64(counter)
	}
	return 0
}

// Snapshot reads every counter. rooms is the registry view at the same moment.
func (s *Stats) Snapshot(rooms map[domain.RoomID]int) Snapshot {
	return Snapshot{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Rooms: lo.MapKeys(rooms, func(_ int, room domain.RoomID) string {
			return room.String()
		}),
		Members:  lo.Sum(lo.Values(rooms)),
		Admitted: atomic.LoadUint64(&s.Admitted),
		Rejected: lo.SliceToMap(domain.RejectionReasons, func(reason domain.RejectionReason) (string, uint64) {
			return string(reason), s.Rejected(reason)
		}),
		OracleFailures: atomic.LoadUint64(&s.OracleFailures),
		Disconnected:   atomic.LoadUint64(&s.Disconnected),
		Relayed:        atomic.LoadUint64(&s.Relayed),
		Delivered:      atomic.LoadUint64(&s.Delivered),
		Dropped:        atomic.LoadUint64(&s.Dropped),
		Process:        CollectProcessStats(),
	}
}

// CollectProcessStats never fails: fields the OS refuses to report stay at zero.
func CollectProcessStats() ProcessStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := ProcessStats{
		Goroutines: runtime.NumGoroutine(),
		AllocBytes: mem.Alloc,
		NumGC:      mem.NumGC,
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if info, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = info.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
