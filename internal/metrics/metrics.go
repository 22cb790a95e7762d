package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Account registrations by outcome.",
		},
		[]string{"outcome"},
	)

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	OTPsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_otps_sent_total",
			Help: "Verification codes dispatched by channel.",
		},
		[]string{"channel"},
	)

	OTPsVerified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_otps_verified_total",
			Help: "Verification attempts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(Registrations, Logins, OTPsSent, OTPsVerified)
}
