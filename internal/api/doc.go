// Package api hosts the HTTP server, middleware, and the operator trigger
// endpoints. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /api/refresh/... to trigger ingest runs.
//   - POST /api/cleanup, /api/reclaim, /api/purge-untagged for retention.
//   - POST /api/backfill-tags to re-run classification over stored papers.
package api
