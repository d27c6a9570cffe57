// Package config loads and validates the twinchat YAML configuration.
//
// Files support ${VAR_NAME} environment variable expansion and duration
// strings ("5s", "1m") for timing fields. A missing backend base URL is not
// a validation failure: the data access layer logs it and degrades fetches
// to empty results, so a half-configured install still starts.
package config
