package daemon

import "github.com/prometheus/client_golang/prometheus"

// Collector 将 Supervisor 计数导出为 prometheus 指标
type Collector struct {
	sup *Supervisor

	up              *prometheus.Desc
	healthy         *prometheus.Desc
	starts          *prometheus.Desc
	stops           *prometheus.Desc
	unexpectedExits *prometheus.Desc
	failures        *prometheus.Desc
	straysKilled    *prometheus.Desc
}

func NewCollector(sup *Supervisor, prefix string) *Collector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(prefix, "engine", name)
	}
	return &Collector{
		sup: sup,
		up: prometheus.NewDesc(
			fqName("up"),
			"Whether the engine process is running (1 for running, 0 for stopped).",
			nil, nil,
		),
		healthy: prometheus.NewDesc(
			fqName("healthy"),
			"Whether the running engine has not written to stderr.",
			nil, nil,
		),
		starts: prometheus.NewDesc(
			fqName("starts_total"),
			"Total number of engine process spawns.",
			nil, nil,
		),
		stops: prometheus.NewDesc(
			fqName("stops_total"),
			"Total number of requested engine stops.",
			nil, nil,
		),
		unexpectedExits: prometheus.NewDesc(
			fqName("unexpected_exits_total"),
			"Total number of engine exits not caused by a stop request.",
			nil, nil,
		),
		failures: prometheus.NewDesc(
			fqName("failures_total"),
			"Total number of unexpected engine exits with a non-zero code.",
			nil, nil,
		),
		straysKilled: prometheus.NewDesc(
			fqName("strays_killed_total"),
			"Total number of leftover engine processes killed.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.healthy
	ch <- c.starts
	ch <- c.stops
	ch <- c.unexpectedExits
	ch <- c.failures
	ch <- c.straysKilled
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.sup.Stats()

	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, boolToFloat(st.Running))
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, boolToFloat(st.Healthy))
	ch <- prometheus.MustNewConstMetric(c.starts, prometheus.CounterValue, float64(st.Starts))
	ch <- prometheus.MustNewConstMetric(c.stops, prometheus.CounterValue, float64(st.Stops))
	ch <- prometheus.MustNewConstMetric(c.unexpectedExits, prometheus.CounterValue, float64(st.UnexpectedExits))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures))
	ch <- prometheus.MustNewConstMetric(c.straysKilled, prometheus.CounterValue, float64(st.StraysKilled))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
