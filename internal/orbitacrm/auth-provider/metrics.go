package authprovider

import "github.com/prometheus/client_golang/prometheus"

var loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orbitacrm",
	Subsystem: "auth",
	Name:      "login_attempts_total",
	Help:      "Login attempts by method and outcome.",
}, []string{"method", "outcome"})

// RegisterMetrics регистрирует счётчики пакета в реестре Prometheus.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(loginAttempts)
}

func observeLogin(method string, outcome string) {
	loginAttempts.WithLabelValues(method, outcome).Inc()
}
