// Package logger builds slog loggers and provides attribute helpers used across
// the gateway.
//
// # Creating a logger
//
//	log := logger.New(
//		logger.WithDevelopment("rpcgate"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log := logger.New(
//		logger.WithProduction("rpcgate"),
//		logger.WithContextExtractors(requestIDExtractor),
//	)
//
// Every logger returned by New wraps its handler with Safe: a sink that fails to
// write, or panics, never affects the caller. Logging is best effort.
//
// # Attribute helpers
//
// Helpers return an empty slog.Attr for zero values, so they can be passed
// without nil checks:
//
//	log.ErrorContext(ctx, "rpc call failed",
//		logger.RPCMethod("UserRpc.signIn"),
//		logger.Error(err),
//	)
//
// Tokens are logged through Secret, which keeps a short prefix only:
//
//	log.DebugContext(ctx, "rpc token issued", logger.Secret("token", tok))
package logger
