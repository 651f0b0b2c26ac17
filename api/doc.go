// Package api defines the wire types for the ImageFlow HTTP API.
//
// This package contains the JSON response envelope, the request/response
// DTOs exchanged with the browser client, and the media-access token
// issuer used by preview and download URLs.
//
// # API Overview
//
// ImageFlow provides a RESTful API for:
//   - Session lifecycle (create, inspect, teardown)
//   - Source image selection via multipart upload
//   - Instruction-driven edits against the configured image model
//   - Preview and result delivery as raw bytes
//   - Edit history, health monitoring and metrics
//
// # Authentication
//
// When service API keys are configured, JSON endpoints require the
// X-API-Key header:
//
//	X-API-Key: your-api-key
//
// Media endpoints (preview, result) are instead guarded by short-lived
// HS256 tokens embedded in the URLs the session view hands out, so
// <img src> and <a href> clients need no header.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
