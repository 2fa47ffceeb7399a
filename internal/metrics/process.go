package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// processCollector reports the watcher's own resident memory and CPU usage
// as gauges, sampled fresh on every scrape rather than on a ticker, so an
// idle worker between scrapes costs nothing.
type processCollector struct {
	rss       *prometheus.Desc
	cpuPct    *prometheus.Desc
	proc      *process.Process
}

func newProcessCollector() *processCollector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &processCollector{
		rss: prometheus.NewDesc(
			"process_resident_memory_bytes",
			"Resident memory of the watcher process, in bytes.",
			nil, nil,
		),
		cpuPct: prometheus.NewDesc(
			"process_cpu_percent",
			"Average CPU usage of the watcher process since it started, as a percentage.",
			nil, nil,
		),
		proc: proc,
	}
}

func (c *processCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rss
	ch <- c.cpuPct
}

func (c *processCollector) Collect(ch chan<- prometheus.Metric) {
	if c.proc == nil {
		return
	}
	if mem, err := c.proc.MemoryInfo(); err == nil && mem != nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mem.RSS))
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpuPct, prometheus.GaugeValue, pct)
	}
}
