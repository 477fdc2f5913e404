package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateServerConfig(&cfg.Server)
	v.validateEngineConfig(&cfg.Engine)
	v.validateClientConfig(&cfg.Client)
	v.validateLoggingConfig(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateServerConfig validates the server configuration.
func (v *Validator) validateServerConfig(cfg *ServerConfig) {
	if cfg.Address == "" {
		v.addError("server.address", "address is required")
	} else if !isValidAddress(cfg.Address) {
		v.addError("server.address", "invalid address format, expected host:port or :port")
	}

	if cfg.ReadTimeout < 0 {
		v.addError("server.read_timeout", "read timeout must be non-negative")
	}
	if cfg.WriteTimeout < 0 {
		v.addError("server.write_timeout", "write timeout must be non-negative")
	}
	if cfg.ResultTimeout <= 0 {
		v.addError("server.result_timeout", "result timeout must be positive")
	}
	if cfg.ReadTimeout > 0 && cfg.ReadTimeout < time.Second {
		v.addError("server.read_timeout", "read timeout should be at least 1 second")
	}
	if cfg.WriteTimeout > 0 && cfg.WriteTimeout < time.Second {
		v.addError("server.write_timeout", "write timeout should be at least 1 second")
	}
}

// validateEngineConfig validates the executor engine configuration.
func (v *Validator) validateEngineConfig(cfg *EngineConfig) {
	if cfg.Workers <= 0 {
		v.addError("engine.workers", "workers must be positive")
	}
	if cfg.QueueSize <= 0 {
		v.addError("engine.queue_size", "queue size must be positive")
	}
}

// validateClientConfig validates the remote engine client configuration.
func (v *Validator) validateClientConfig(cfg *ClientConfig) {
	if cfg.BaseURL == "" {
		v.addError("client.base_url", "base URL is required")
	} else {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			v.addError("client.base_url", "invalid base URL, expected http(s)://host:port")
		}
	}

	if cfg.RequestTimeout <= 0 {
		v.addError("client.request_timeout", "request timeout must be positive")
	}
	if cfg.GatherTimeout <= 0 {
		v.addError("client.gather_timeout", "gather timeout must be positive")
	}
	if cfg.GatherTimeout > 0 && cfg.RequestTimeout > 0 && cfg.GatherTimeout < cfg.RequestTimeout {
		v.addError("client.gather_timeout", "gather timeout should not be shorter than request timeout")
	}
}

// validateLoggingConfig validates the logging configuration.
func (v *Validator) validateLoggingConfig(cfg *LoggingConfig) {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if cfg.Level == "" {
		v.addError("logging.level", "log level is required")
	} else if !validLevels[strings.ToLower(cfg.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", cfg.Level))
	}

	// Output 可以是 stdout、stderr 或文件路径，文件可写性在运行时检查
}

// isValidAddress checks if the address is a valid host:port format.
func isValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if port == "" {
		return false
	}
	_ = host // 空 host 表示监听所有接口
	return true
}
