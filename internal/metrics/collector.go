// Package metrics экспортирует в Prometheus состояние слоя памяти: рост
// упакованных массивов, занятость пула чанков, объём упакованных данных.
package metrics

import (
	"net/http"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxelcore"

// Collector инкапсулирует метрики слоя памяти. Все методы безопасны для nil,
// так что компоненты могут работать и без метрик.
type Collector struct {
	registry *prometheus.Registry

	widthGrows    prometheus.Counter
	widthGrowBits prometheus.Histogram
	chunkAllocs   prometheus.Counter
	chunkFrees    prometheus.Counter
	poolExhausted prometheus.Counter
	chunksLoaded  prometheus.Gauge
	packedBytes   prometheus.Gauge
}

// NewCollector создаёт набор метрик в собственном реестре.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		widthGrows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packed_width_grows_total",
			Help:      "Число расширений упакованных массивов.",
		}),
		widthGrowBits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packed_width_after_grow_bits",
			Help:      "Ширина элемента после расширения.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32},
		}),
		chunkAllocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_chunk_allocations_total",
			Help:      "Выделения слотов пула чанков.",
		}),
		chunkFrees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_chunk_deallocations_total",
			Help:      "Освобождения слотов пула чанков.",
		}),
		poolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_exhausted_total",
			Help:      "Отказы в выделении из-за исчерпания пула.",
		}),
		chunksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_loaded",
			Help:      "Число загруженных чанков.",
		}),
		packedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packed_bytes",
			Help:      "Суммарный объём упакованных данных загруженных чанков.",
		}),
	}

	c.registry.MustRegister(
		c.widthGrows, c.widthGrowBits, c.chunkAllocs, c.chunkFrees,
		c.poolExhausted, c.chunksLoaded, c.packedBytes,
	)
	return c
}

// Registry возвращает реестр (для регистрации дополнительных коллекторов).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveGrow фиксирует расширение массива с ширины from до to.
func (c *Collector) ObserveGrow(from, to int) {
	if c == nil || to <= from {
		return
	}
	c.widthGrows.Inc()
	c.widthGrowBits.Observe(float64(to))
}

func (c *Collector) ObserveChunkAllocated() {
	if c == nil {
		return
	}
	c.chunkAllocs.Inc()
	c.chunksLoaded.Inc()
}

func (c *Collector) ObserveChunkFreed() {
	if c == nil {
		return
	}
	c.chunkFrees.Inc()
	c.chunksLoaded.Dec()
}

func (c *Collector) ObservePoolExhausted() {
	if c == nil {
		return
	}
	c.poolExhausted.Inc()
}

// AddPackedBytes изменяет суммарный объём упакованных данных на delta.
func (c *Collector) AddPackedBytes(delta int) {
	if c == nil || delta == 0 {
		return
	}
	c.packedBytes.Add(float64(delta))
}

// Handler возвращает HTTP-обработчик /metrics для реестра.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий: HTTP-сервер стартует в отдельной горутине.
func (c *Collector) StartHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
}
