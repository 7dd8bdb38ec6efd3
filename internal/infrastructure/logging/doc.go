// Package logging wraps log/slog into the one structured logger the
// daemon shares. Every line carries service and version fields; the
// packages underneath receive it through their own small Logger
// interfaces, so none of them import slog directly.
//
// Configured from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("listening", "addr", cfg.Server.Addr())
//
// Never log secrets: broker passwords and InfluxDB tokens stay out of
// log lines.
package logging
