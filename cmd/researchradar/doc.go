// Package main hosts the ingestion service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and the operator
//     trigger endpoints (refresh, cleanup, reclaim, backfill). Trigger runs
//     execute synchronously and return run summaries; a second concurrent run
//     of the same pipeline is rejected with 409.
//   - Ingest pipelines: internal/ingest fans source queries out to a bounded
//     worker pool and funnels all results through one aggregator, which owns
//     canonicalization, in-batch dedup, classification, the admission filter,
//     and persistence. One failed source query never aborts a run.
//   - Sources: internal/source wraps the arXiv, OpenReview, Semantic Scholar,
//     Hacker News, Reddit, GitHub, Hugging Face, YouTube, Google News, and
//     WeChat (via RSSHub) APIs behind a uniform search contract. Adapters
//     declare whether recency filtering happens server-side; the orchestrator
//     client-filters the rest.
//   - Persistence: internal/store runs on pgx against Postgres, with embedded
//     golang-migrate migrations applied at startup. Papers upsert by
//     source-qualified identity; new inserts trigger subscription matching and
//     notification rows.
//   - Retention: internal/retention ages out papers and code posts after a
//     year and community posts after a quarter, cascading notifications before
//     paper deletes, with VACUUM exposed as a separate reclaim pass.
//   - Configuration & plumbing: Viper populates config from env/files
//     (RADAR_* variables); zap provides structured logging; Prometheus
//     metrics are exported via /metrics.
//
// Operational notes:
//   - Run the service: go run ./cmd/researchradar -config config.yaml.
//   - Cron mode: -refresh papers|posts|company|all runs one ingest pass and
//     exits, for deployments that schedule fetches externally.
//   - Sources needing credentials (GitHub token, YouTube API key) degrade to
//     disabled when unset.
package main
