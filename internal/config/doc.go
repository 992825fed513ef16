// Package config loads switchyard.json.
//
// # Configuration File Structure
//
//	{
//	  "name": "orders",
//	  "addr": ":8080",
//	  "devMode": false,
//	  "canonicalPaths": true,
//	  "metrics": {"enabled": true, "namespace": "orders", "path": "/metrics"},
//	  "tracing": {"enabled": true},
//	  "database": {"driver": "postgres", "dsn": "postgres://localhost/orders"},
//	  "storage": {"bucket": "orders-assets", "region": "eu-west-1", "prefix": "public/"},
//	  "log": {"level": "info", "format": "json"}
//	}
//
// Missing fields take defaults. SWITCHYARD_ADDR, SWITCHYARD_DEV and
// SWITCHYARD_DATABASE_DSN override the file when ApplyEnv is called.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    log.Fatal(err)
//	}
package config
