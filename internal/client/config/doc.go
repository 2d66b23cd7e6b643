// Package config loads runtime configuration for the Pulse CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the API server
//	-s string   token store: sqlite (default) or cookie
//	-f string   sqlite database file
//	-t int      request timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "store": "sqlite",
//	  "db_file": "pulse_client.db",
//	  "request_timeout": "10s"
//	}
package config
