package executor

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats 是引擎的运行指标快照。
type Stats struct {
	Tasks    int64         `json:"tasks"`
	Failures int64         `json:"failures"`
	Stored   int           `json:"stored"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	P99      time.Duration `json:"p99"`
	Max      time.Duration `json:"max"`
}

// statsRecorder 用 HDR 直方图记录任务执行耗时。
type statsRecorder struct {
	hist     *hdrhistogram.Histogram
	tasks    int64
	failures int64
	mu       sync.Mutex
}

func newStatsRecorder() *statsRecorder {
	// 微秒直方图，上限 10 分钟，3 位有效数字
	return &statsRecorder{
		hist: hdrhistogram.New(1, 10*time.Minute.Microseconds(), 3),
	}
}

func (r *statsRecorder) record(d time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks++
	if failed {
		r.failures++
	}
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	// 超出直方图上限的值记为上限
	_ = r.hist.RecordValue(min(us, r.hist.HighestTrackableValue()))
}

func (r *statsRecorder) snapshot(stored int) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Tasks:    r.tasks,
		Failures: r.failures,
		Stored:   stored,
		P50:      time.Duration(r.hist.ValueAtQuantile(50)) * time.Microsecond,
		P95:      time.Duration(r.hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:      time.Duration(r.hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:      time.Duration(r.hist.Max()) * time.Microsecond,
	}
}
