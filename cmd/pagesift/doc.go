// Package main hosts the pagesift service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the crawl, history and preview endpoints. Requests are validated
//     (URL scheme/host, extraction modes) before the pipeline runs; crawl and provider failures are reported inside
//     the response envelope rather than as HTTP errors.
//   - Crawl pipeline: internal/crawler fetches the page once via the Colly-based fetcher, optionally promotes to a
//     headless Chromedp render when the page looks script-driven, applies the requested content-source selector
//     (raw, cleaned or fit HTML) and converts the result to markdown.
//   - AI extraction: internal/extract dispatches the markdown to the configured LLM provider over its HTTP API and
//     normalizes every outcome into a result envelope. Providers without a configured credential are skipped.
//   - Persistence & fanout: markdown, per-mode AI results and a combined JSON document are written to the configured
//     blob store (memory/GCS). Task and file metadata are persisted to Postgres in a single transaction, and a
//     compact Pub/Sub notification is published when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler. The service is stateless across
//     requests, suitable for Cloud Run scale-out.
//
// Operational notes:
//   - Every external call (fetch, render, provider, upload) is attempted exactly once; there is no retry layer.
//   - Observability: zap logs carry URLs and task IDs at key transitions; Prometheus counters/histograms track API,
//     crawl, extraction and upload activity. Tracing is not wired in.
//   - Cloud Run: the HTTP server listens on the configured port, health stays lightweight at /health, and the
//     process reacts to SIGTERM for graceful drain.
//
// Quick checklist:
//   - Configure env vars with the PAGESIFT_ prefix (PAGESIFT_SERVER_PORT, PAGESIFT_DATABASE_HOST,
//     PAGESIFT_STORAGE_PROVIDER, PAGESIFT_AI_DEFAULT_PROVIDER, ...) or supply a config file.
//   - Run locally: go run ./cmd/pagesift -config config.yaml (or rely solely on env overrides).
package main
