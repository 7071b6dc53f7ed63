// Package logger builds structured loggers on top of log/slog.
//
// New returns a *slog.Logger configured by functional options: output format (JSON or text),
// level, destination, static attributes and context extractors. WithEnvironment applies
// development, staging or production defaults. Records logged with a context prepared by
// WithOperation carry the operation name, which the CLI uses to tag everything a command logs.
//
// Attribute helpers (UserID, UserName, Role, Provider, Entity, Error, ...) keep key names
// consistent across packages. Error and Errors return an empty attribute for nil errors, so
//
//	log.Info("account deleted", logger.UserName(name), logger.Error(err))
//
// needs no nil check.
//
// Services in this module default to Discard and accept a logger through options.
package logger
