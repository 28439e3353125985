// Package logging provides structured logging with redaction and
// context fields.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Redaction of credentials and, optionally, resource OCIDs
//   - Context-aware logging with line, namespace, resource and worker fields
//   - Configurable log levels (debug, info, warn, error)
//
// Logs are written to stderr by default because stdout carries the
// enriched metric stream.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:       "info",
//	    Format:      "json",
//	    RedactOCIDs: true,
//	})
//
//	ctx = logging.WithLine(ctx, 42)
//	ctx = logging.WithResourceID(ctx, "ocid1.instance.oc1.iad.anuwcljtabc123")
//	logger.WarnContext(ctx, "lookup failed", "error", err)
//	// {"level":"WARN","msg":"lookup failed","line":42,
//	//  "resource_id":"ocid1.instance.oc1.iad.***",...}
//
// Packages that take a *slog.Logger receive logger.Slog(); their records go
// through the same handler, so context fields and redaction apply there too.
//
// # Redaction
//
//   - Sensitive keys (private_key, passphrase, token, ...): value → ***
//   - Request signatures: signature="..." → signature="***"
//   - PEM private keys → ***PRIVATE KEY***
//   - OCIDs when enabled: ocid1.instance.oc1.iad.anuwcljt... → ocid1.instance.oc1.iad.***
package logging
