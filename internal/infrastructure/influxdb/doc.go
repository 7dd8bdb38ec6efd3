// Package influxdb provides InfluxDB connectivity for SentryFleet.
//
// It wraps the official influxdb-client-go v2 library with SentryFleet-specific
// patterns for connection management, gauge writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Per-system gauges (battery level, signal strength, armed state)
//   - Fleet-wide summary counts
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "sentryfleet",
//	    Bucket: "gauges",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSystemGauges(subject)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback (SetOnError). Connection and health check errors are returned
// directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead when fleet state is
// sampled frequently.
package influxdb
