// Package config provides configuration loading and validation for the
// meetmind services.
//
// It uses Viper to load configuration from YAML files and environment
// variables, with godotenv support for .env files. Every section carries
// ApplyDefaults and Validate methods; struct-level validation uses
// go-playground/validator tags.
//
// # Usage
//
//	cfg := config.Default()
//	err := config.LoadConfig("meetmind-server", &cfg)
package config
