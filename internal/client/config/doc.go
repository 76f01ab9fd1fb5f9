// Package config loads runtime configuration for the vaultdrop CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the backend gRPC endpoint
//	-d string     path of the local SQLite history database
//	-j int        number of files encrypted and uploaded in parallel
//	-t duration   timeout of a single object transfer (e.g. "90s")
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "local_db_path": "vaultdrop.db",
//	  "upload_concurrency": 4,
//	  "transfer_timeout": "5m"
//	}
package config
