package config

import (
	"time"

	"gopkg.in/ini.v1"

	fqerrors "github.com/hostloop/fetchq/errors"
)

const (
	sectionQueue = "queue"

	keyWorkers    = "worker-threads"
	keyCallbacks  = "callbacks-per-frame"
	keyRetryDelay = "microseconds-delay-between-attempts"
)

// Config holds the three startup values the queue needs. All of them are
// required; anything missing or unparseable is a fatal startup error.
type Config struct {
	// Workers is the number of background threads performing exchanges.
	Workers int

	// CallbacksPerTick caps callback deliveries per host tick, before
	// backlog compensation.
	CallbacksPerTick int

	// RetryDelay is the minimum spacing between reattempts of the same
	// failed request.
	RetryDelay time.Duration
}

// Validate checks ranges. Workers and CallbacksPerTick must be positive;
// RetryDelay must not be negative.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fqerrors.InvalidInput(fqerrors.PhaseConfig, "worker-threads must be at least 1")
	}
	if c.CallbacksPerTick < 1 {
		return fqerrors.InvalidInput(fqerrors.PhaseConfig, "callbacks-per-frame must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fqerrors.InvalidInput(fqerrors.PhaseConfig, "microseconds-delay-between-attempts must not be negative")
	}
	return nil
}

// Load reads the [queue] section of an INI file:
//
//	[queue]
//	worker-threads = 4
//	callbacks-per-frame = 10
//	microseconds-delay-between-attempts = 100000
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fqerrors.ParseFailed(fqerrors.PhaseConfig, "config file "+path, err)
	}

	section, err := file.GetSection(sectionQueue)
	if err != nil {
		return Config{}, fqerrors.MissingKey(sectionQueue, "(section)")
	}

	workers, err := requiredInt(section, keyWorkers)
	if err != nil {
		return Config{}, err
	}
	callbacks, err := requiredInt(section, keyCallbacks)
	if err != nil {
		return Config{}, err
	}
	delayMicros, err := requiredInt(section, keyRetryDelay)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Workers:          workers,
		CallbacksPerTick: callbacks,
		RetryDelay:       time.Duration(delayMicros) * time.Microsecond,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func requiredInt(section *ini.Section, key string) (int, error) {
	if !section.HasKey(key) {
		return 0, fqerrors.MissingKey(sectionQueue, key)
	}
	n, err := section.Key(key).Int()
	if err != nil {
		return 0, fqerrors.ParseFailed(fqerrors.PhaseConfig, "key "+key, err)
	}
	return n, nil
}
