// Package config loads the daemon configuration: built-in defaults,
// then the YAML file, then SENTRYFLEET_* environment overrides, then
// validation. Secrets (broker password, InfluxDB token) belong in the
// environment, not the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Addr())
package config
