/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package poll

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the polling counters of every job.
type Metrics struct {
	polls    *prometheus.CounterVec
	changed  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	resolved *prometheus.GaugeVec
}

// NewMetrics creates the polling metrics and registers them on reg.
// reg may be nil, leaving them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivywatch_poll_total",
				Help: "Number of polling cycles by job.",
			},
			[]string{"job"},
		),
		changed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivywatch_poll_changed_total",
				Help: "Number of polling cycles that detected a change, by job.",
			},
			[]string{"job"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivywatch_poll_failed_total",
				Help: "Number of polling cycles whose resolution failed or came back empty, by job.",
			},
			[]string{"job"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ivywatch_poll_duration_seconds",
				Help:    "Time taken by a polling cycle.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		resolved: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ivywatch_resolved_dependencies",
				Help: "Number of dependencies resolved by the last successful cycle, by job.",
			},
			[]string{"job"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.polls, m.changed, m.failed, m.duration, m.resolved)
	}
	return m
}

func (m *Metrics) observe(job string, result PollResult, resolved int) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(job).Inc()
	m.duration.WithLabelValues(job).Observe(result.Duration.Seconds())
	if result.Changed {
		m.changed.WithLabelValues(job).Inc()
	}
	switch {
	case result.Outcome.IsError():
		m.failed.WithLabelValues(job).Inc()
	case resolved >= 0:
		m.resolved.WithLabelValues(job).Set(float64(resolved))
	}
}
