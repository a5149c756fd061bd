package arena

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
)

// AllocatorMetrics contains statistical information about an allocator.
type AllocatorMetrics struct {
	Strategy       Strategy
	UsedMemory     int     // Bytes charged to live allocations
	Capacity       int     // Arena size in bytes
	NumAllocations int     // Live allocations
	FreeBlocks     int     // Free-list blocks or free pool chunks, 0 for bump and stack
	Utilization    float64 // Ratio of used to capacity (0.0-1.0)
}

// Metrics returns a snapshot of a's statistics.
func Metrics(a Allocator) AllocatorMetrics {
	if s, ok := a.(*Synchronized); ok {
		return s.Metrics()
	}

	m := AllocatorMetrics{
		Strategy:       StrategyOf(a),
		UsedMemory:     a.UsedMemory(),
		Capacity:       a.Capacity(),
		NumAllocations: a.NumAllocations(),
	}
	switch v := a.(type) {
	case *FreeList:
		if v.buf != nil {
			m.FreeBlocks = v.FreeBlocks()
		}
	case *Pool:
		m.FreeBlocks = v.FreeChunks()
	}
	if m.Capacity > 0 {
		m.Utilization = float64(m.UsedMemory) / float64(m.Capacity)
	}
	return m
}

func (m AllocatorMetrics) String() string {
	return fmt.Sprintf("%s: %s of %s in use (%.2f%%), %d allocations",
		m.Strategy,
		humanize.IBytes(uint64(m.UsedMemory)),
		humanize.IBytes(uint64(m.Capacity)),
		m.Utilization*100,
		m.NumAllocations,
	)
}

var _ prometheus.Collector = &Collector{}

// Collector exports allocator statistics to Prometheus. Scrapes run on
// other goroutines, so the allocator should be wrapped in Synchronized
// unless it is otherwise guarded.
type Collector struct {
	a Allocator

	used        *prometheus.Desc
	capacity    *prometheus.Desc
	allocations *prometheus.Desc
	freeBlocks  *prometheus.Desc
}

// NewCollector returns a collector for a, labelled with the given allocator name.
func NewCollector(name string, a Allocator) *Collector {
	labels := prometheus.Labels{"allocator": name, "strategy": StrategyOf(a).String()}
	return &Collector{
		a: a,
		used: prometheus.NewDesc(
			"arena_used_bytes",
			"Bytes charged to live allocations, including headers and padding.",
			nil, labels,
		),
		capacity: prometheus.NewDesc(
			"arena_capacity_bytes",
			"Total size of the arena.",
			nil, labels,
		),
		allocations: prometheus.NewDesc(
			"arena_allocations",
			"Number of live allocations.",
			nil, labels,
		),
		freeBlocks: prometheus.NewDesc(
			"arena_free_blocks",
			"Number of free blocks or free pool chunks.",
			nil, labels,
		),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.used
	descs <- c.capacity
	descs <- c.allocations
	descs <- c.freeBlocks
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	m := Metrics(c.a)
	metrics <- prometheus.MustNewConstMetric(c.used, prometheus.GaugeValue, float64(m.UsedMemory))
	metrics <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(m.Capacity))
	metrics <- prometheus.MustNewConstMetric(c.allocations, prometheus.GaugeValue, float64(m.NumAllocations))
	metrics <- prometheus.MustNewConstMetric(c.freeBlocks, prometheus.GaugeValue, float64(m.FreeBlocks))
}
