// Package health provides liveness and readiness probes for tagstream.
//
// The probes are served by the telemetry HTTP server:
//
//   - /health: liveness, 200 while the process serves HTTP
//   - /ready: readiness, 200 once every registered check passes, 503 before
//   - /version: build information
//
// The daemon registers three readiness checks: "credentials" (a request
// signer was loaded), "pipeline" (the reader loop is running) and "oci"
// (the control-plane client has not crossed its consecutive failure
// threshold).
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.Register("pipeline", health.Condition(pipeline.Running, "pipeline is not running"))
//	checker.Register("oci", provider.HealthCheck)
//
//	mux.Handle("/health", checker.LivenessHandler())
//	mux.Handle("/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker's timeout. A check
// that does not return in time is reported unhealthy with ErrCheckTimeout.
package health
