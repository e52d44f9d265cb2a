package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttemptsTotal counts login attempts by flow and outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telegram_auth_login_attempts_total",
		Help: "The total number of login attempts by flow and status",
	}, []string{"flow", "status"})

	// LoginCodesIssuedTotal counts login codes minted for the bot flow.
	LoginCodesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegram_auth_login_codes_issued_total",
		Help: "The total number of single-use login codes issued",
	})

	// AuthenticatedRequestsTotal counts requests that passed the
	// session cookie middleware.
	AuthenticatedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telegram_auth_authenticated_requests_total",
		Help: "The total number of authenticated requests",
	})

	// WebsocketConnections tracks currently open push channels.
	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "telegram_auth_websocket_connections",
		Help: "The number of currently registered websocket connections",
	})
)
