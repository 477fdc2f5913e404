package config

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigRoundTripProperty 验证：任意合法配置序列化再反序列化后等价。
func TestConfigRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("config round-trip preserves data", prop.ForAll(
		func(workers, queueSize int, address, level string, timeoutSec int) bool {
			cfg := DefaultConfig()
			cfg.Engine.Workers = workers
			cfg.Engine.QueueSize = queueSize
			cfg.Server.Address = address
			cfg.Logging.Level = level
			cfg.Server.ResultTimeout = time.Duration(timeoutSec) * time.Second

			data, err := cfg.Serialize()
			if err != nil {
				return false
			}
			parsed, err := ParseConfig(data)
			if err != nil {
				return false
			}

			return parsed.Engine.Workers == cfg.Engine.Workers &&
				parsed.Engine.QueueSize == cfg.Engine.QueueSize &&
				parsed.Server.Address == cfg.Server.Address &&
				parsed.Logging.Level == cfg.Logging.Level &&
				parsed.Server.ResultTimeout == cfg.Server.ResultTimeout
		},
		gen.IntRange(1, 128),
		gen.IntRange(1, 1<<16),
		gen.RegexMatch(`:[0-9]{2,5}`),
		gen.OneConstOf("debug", "info", "warn", "error"),
		gen.IntRange(1, 3600),
	))

	properties.TestingRun(t)
}
