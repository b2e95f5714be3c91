package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимает показатели процесса для отчётов и метрик
type ProcessStats struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessStats создает снимщик для текущего процесса
func NewProcessStats() (*ProcessStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть процесс: %w", err)
	}
	return &ProcessStats{StartTime: time.Now(), proc: proc}, nil
}

// GetUptime возвращает время работы
func (ps *ProcessStats) GetUptime() time.Duration {
	return time.Since(ps.StartTime)
}

// GetRSSBytes возвращает резидентный объём памяти процесса
func (ps *ProcessStats) GetRSSBytes() (uint64, error) {
	info, err := ps.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

// GetHeapAllocMB возвращает занятую кучу Go в MB
func (ps *ProcessStats) GetHeapAllocMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// RegisterProcessGauges добавляет в коллектор gauge RSS процесса
func (c *Collector) RegisterProcessGauges(ps *ProcessStats) error {
	rss := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "process_rss_bytes",
		Help:      "Резидентная память процесса (gopsutil).",
	}, func() float64 {
		v, err := ps.GetRSSBytes()
		if err != nil {
			return 0
		}
		return float64(v)
	})
	return c.registry.Register(rss)
}
