// Package metrics defines the Prometheus instrumentation for the login
// server: session counts, authentication outcomes, ticket lifecycle, and
// char-server roster occupancy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "loginsrv"
)

// Label names shared across metrics.
const (
	labelResult = "result"
	labelRole   = "role"
)

// Collector holds every Prometheus metric the login server exports.
type Collector struct {
	Sessions *prometheus.GaugeVec

	AuthAttempts *prometheus.CounterVec

	TicketsIssued  prometheus.Counter
	TicketsRedeemed prometheus.Counter
	TicketsExpired  prometheus.Counter

	PresenceOrphaned prometheus.Counter
	PresenceSwept    prometheus.Counter

	CharServersOnline prometheus.Gauge

	IPBansActive prometheus.Gauge
	IPBansIssued prometheus.Counter

	RegistrationsThrottled prometheus.Counter
}

// NewCollector creates a Collector and registers every metric against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of currently connected sessions by role.",
		}, []string{labelRole}),

		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total client login attempts by result code.",
		}, []string{labelResult}),

		TicketsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_issued_total",
			Help:      "Total one-time login tickets issued.",
		}),
		TicketsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_redeemed_total",
			Help:      "Total one-time login tickets redeemed by a char-server.",
		}),
		TicketsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_expired_total",
			Help:      "Total one-time login tickets swept out unredeemed.",
		}),

		PresenceOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_orphaned_total",
			Help:      "Total presence records orphaned by a char-server disconnect.",
		}),
		PresenceSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_swept_total",
			Help:      "Total orphaned presence records reclaimed by the sweeper.",
		}),

		CharServersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "char_servers_online",
			Help:      "Number of char-servers currently occupying a roster slot.",
		}),

		IPBansActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ip_bans_active",
			Help:      "Number of IP addresses currently under a dynamic ban.",
		}),
		IPBansIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ip_bans_issued_total",
			Help:      "Total dynamic IP bans issued for repeated password failures.",
		}),

		RegistrationsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_throttled_total",
			Help:      "Total auto-registration attempts refused by the sliding-window throttle.",
		}),
	}

	reg.MustRegister(
		c.Sessions,
		c.AuthAttempts,
		c.TicketsIssued,
		c.TicketsRedeemed,
		c.TicketsExpired,
		c.PresenceOrphaned,
		c.PresenceSwept,
		c.CharServersOnline,
		c.IPBansActive,
		c.IPBansIssued,
		c.RegistrationsThrottled,
	)

	return c
}
