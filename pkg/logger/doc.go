// Package logger builds the gateway's structured logger. It wraps log/slog,
// choosing a JSON handler in production and a text handler everywhere else,
// and stamps every record with the deployment environment.
package logger
