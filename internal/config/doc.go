// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config
