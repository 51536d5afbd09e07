// Package config defines configuration for the crunch CLI.
//
// Configuration is layered, later sources winning:
//   - Defaults
//   - YAML configuration file
//   - Environment variables (CRUNCHDAO_ prefix), after loading .env
//   - Command-line flags
//
// # File Format
//
//	api_key: ...
//	data_dir: ./data
//	chunk_size: 64KiB
//	timeout: 1m
//	calendar: ./calendar.yaml
//	mirror: s3://my-bucket?region=eu-west-1
//	log:
//	  level: debug
//	  format: json
package config
