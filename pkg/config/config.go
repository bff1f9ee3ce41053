// Package config loads and validates the master server configuration from
// YAML, with the log and hash-table sized the way operators specify them:
// textual megabyte counts.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// bytesPerIndexEntry approximates the in-memory cost of one index entry,
// used to turn the configured hash-table size into a key-count hint.
const bytesPerIndexEntry = 64

var validate = validator.New()

// Config is the full master server configuration.
type Config struct {
	Master      MasterConfig      `yaml:"master" validate:"required"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// MasterConfig sizes and addresses the master itself.
type MasterConfig struct {
	Locator  string `yaml:"locator" validate:"required"`
	HTTPAddr string `yaml:"http_addr" validate:"required"`

	// SegmentSize is the per-segment capacity in bytes.
	SegmentSize uint32 `yaml:"segment_size" validate:"gte=1024"`

	// LogSize and HashSize are textual megabyte counts, e.g. "64" and "8".
	LogSize  string `yaml:"log_size" validate:"required,number"`
	HashSize string `yaml:"hash_size" validate:"required,number"`

	// Derived by SizeLogAndHashTable.
	MaxSegments   int `yaml:"-"`
	IndexSizeHint int `yaml:"-"`
}

// CoordinatorConfig locates the coordinator service.
type CoordinatorConfig struct {
	Locator string `yaml:"locator"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Master: MasterConfig{
			Locator:     "tcp://127.0.0.1:9090",
			HTTPAddr:    ":8080",
			SegmentSize: 64 * 1024,
			LogSize:     "64",
			HashSize:    "8",
		},
		Coordinator: CoordinatorConfig{
			Locator: "tcp://127.0.0.1:9081",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SizeLogAndHashTable derives the log's segment budget and the index size
// hint from textual megabyte counts.
func SizeLogAndHashTable(logMB, hashMB string, c *Config) error {
	logSize, err := strconv.ParseUint(logMB, 10, 32)
	if err != nil {
		return fmt.Errorf("log size %q: %w", logMB, err)
	}
	hashSize, err := strconv.ParseUint(hashMB, 10, 32)
	if err != nil {
		return fmt.Errorf("hash table size %q: %w", hashMB, err)
	}
	if logSize == 0 || hashSize == 0 {
		return fmt.Errorf("log and hash table sizes must be non-zero, got %sMB/%sMB", logMB, hashMB)
	}
	if c.Master.SegmentSize == 0 {
		return fmt.Errorf("segment size not set")
	}

	logBytes := logSize << 20
	if logBytes < uint64(c.Master.SegmentSize) {
		return fmt.Errorf("log of %sMB smaller than one %d-byte segment", logMB, c.Master.SegmentSize)
	}

	c.Master.LogSize = logMB
	c.Master.HashSize = hashMB
	c.Master.MaxSegments = int(logBytes / uint64(c.Master.SegmentSize))
	c.Master.IndexSizeHint = int((hashSize << 20) / bytesPerIndexEntry)
	return nil
}

// Validate checks the configuration's struct tags and derived fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if c.Master.MaxSegments == 0 {
		return fmt.Errorf("log and hash table not sized; call SizeLogAndHashTable")
	}
	return nil
}

// Load reads a YAML config file over the defaults, sizes the log and hash
// table, and validates the result. An empty path yields the validated
// defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := SizeLogAndHashTable(c.Master.LogSize, c.Master.HashSize, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// formatValidationError flattens validator errors into something an
// operator can read in a startup failure.
func formatValidationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, fe := range errs {
		return fmt.Errorf("config field %s fails %q validation", fe.Namespace(), fe.Tag())
	}
	return err
}
