// Package logging provides structured logging for the memory core.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, agent.id, session.id)
//   - Defense-in-depth secret redaction
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithAgentID(ctx, "agent_42")
//	ctx = logging.WithSessionID(ctx, "sess_123")
//	logger.Info(ctx, "entry stored", zap.String("entry.id", id))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2025-11-24T10:15:30Z",
//	  "level": "info",
//	  "msg": "entry stored",
//	  "trace_id": "abc123",
//	  "agent.id": "agent_42",
//	  "session.id": "sess_123",
//	  "entry.id": "..."
//	}
//
// # Configuration
//
// Configuration is built in code: start from NewDefaultConfig and change
// fields before calling NewLogger. The memcore config loader has no logging
// section, so no config file or environment variable is read by this package.
//
// # Secret Redaction
//
// Secrets are redacted at multiple layers:
//  1. Domain primitives (config.Secret type)
//  2. Encoder-level field name filtering
//  3. Encoder-level pattern matching
//
// Use helpers for manual redaction:
//
//	logger.Info(ctx, "auth received",
//	    logging.RedactedString("authorization", authHeader))
//
// # Sampling
//
// Sampling prevents log floods. Every level below Error shares one sampler
// whose rates come from the Info entry of Sampling.Levels (by default the
// first 100 per tick, then 1 every 10); the Trace, Debug and Warn entries are
// not consulted. Error and above are never sampled.
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
//
// # Performance
//
// Logging overhead: <1ms per entry in hot paths
// Trace skips building context fields when its level is disabled; the other
// methods build them before zap's level check
// Sampling reduces volume by ~90% in high-throughput scenarios
package logging
