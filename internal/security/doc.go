// Package security guards the gateway's outbound and inbound surfaces.
//
// # Fetcher
//
// [Fetcher] is an SSRF-hardened HTTP client for tool handlers that
// fetch model-chosen URLs. It blocks private networks, loopback and
// cloud metadata endpoints (CWE-918), re-validates every redirect hop
// and caps response size.
//
//	fetcher := security.NewFetcher(logger)
//	body, err := fetcher.Get(userURL)
//
// # PromptScreen
//
// [PromptScreen] flags chat messages that match common prompt
// injection patterns. The gateway logs flagged turns for an audit
// trail; it does not block them, since false positives on ordinary
// chat are routine.
//
// # Design
//
// Validators here intentionally both log and return errors. Security
// events need an audit trail AND a denied operation; dropping either
// side creates a gap.
package security
