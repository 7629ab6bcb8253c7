// Package config loads and validates the Haven Core configuration.
//
// Configuration comes from three layers, each overriding the last:
// hardcoded defaults, a YAML file, and HAVEN_* environment variables.
// Secrets (broker passwords, InfluxDB tokens) belong in the environment
// rather than on disk, and the file itself should be mode 0600.
//
// The configuration is read once at startup and never reloaded:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
