// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package metrics exposes Prometheus metrics for the authentication server.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all server metrics.
	Namespace = "findskills"

	// Label names
	LabelMethod     = "method"
	LabelStatusCode = "status_code"
	LabelCeremony   = "ceremony"
	LabelStatus     = "status"
	LabelAuthMethod = "auth_method"

	// Status values
	StatusSuccess = "success"
	StatusFailure = "failure"

	// Ceremony names
	CeremonyRegistration   = "registration"
	CeremonyAuthentication = "authentication"

	// Auth method names
	AuthMethodPassword = "password"
	AuthMethodPasskey  = "passkey"
)

var (
	// HTTPRequestsTotal tracks HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// LoginsTotal tracks login attempts by auth method and outcome.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by auth method and status",
		},
		[]string{LabelAuthMethod, LabelStatus},
	)

	// CeremoniesTotal tracks completed WebAuthn ceremonies by type and outcome.
	CeremoniesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "webauthn",
			Name:      "ceremonies_total",
			Help:      "Total number of WebAuthn ceremonies by type and status",
		},
		[]string{LabelCeremony, LabelStatus},
	)

	// PendingChallenges tracks the number of outstanding WebAuthn challenges.
	PendingChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "webauthn",
			Name:      "pending_challenges",
			Help:      "Number of outstanding WebAuthn challenges",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordHTTPRequest records an HTTP request with its duration in seconds.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !IsEnabled() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// RecordLogin records a login attempt.
func RecordLogin(authMethod string, ok bool) {
	if !IsEnabled() {
		return
	}
	LoginsTotal.WithLabelValues(authMethod, outcome(ok)).Inc()
}

// RecordCeremony records a finished WebAuthn ceremony.
func RecordCeremony(ceremony string, ok bool) {
	if !IsEnabled() {
		return
	}
	CeremoniesTotal.WithLabelValues(ceremony, outcome(ok)).Inc()
}

// SetPendingChallenges sets the pending-challenge gauge.
func SetPendingChallenges(n int) {
	if !IsEnabled() {
		return
	}
	PendingChallenges.Set(float64(n))
}

func outcome(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}

// Enable turns metric recording on.
func Enable() {
	enabled.Store(true)
}

// Disable turns metric recording off.
func Disable() {
	enabled.Store(false)
}

// IsEnabled reports whether metric recording is on.
func IsEnabled() bool {
	return enabled.Load()
}
