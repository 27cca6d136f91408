// Package config loads the service configuration from the environment.
package config
