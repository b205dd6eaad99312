// Package config reads the run parameters shared by every test session.
// Values come from an optional YAML file, then HARNESS_* environment
// variables, then defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"webharness-go/infrastructure/browser"
)

// EnvPrefix is prepended to every environment override, e.g. HARNESS_TARGETBROWSER.
const EnvPrefix = "HARNESS"

// Parameter keys. Viper matches them case-insensitively.
const (
	KeyApplicationURL    = "ApplicationURL"
	KeyPipelineRun       = "PipelineRun"
	KeyEnableIncognito   = "EnableIncognito"
	KeyTargetBrowser     = "TargetBrowser"
	KeyEdgeBinary        = "EdgeBrowserBinaryLocation"
	KeyHeadless          = "Headless"
	KeyVerbose           = "Verbose"
	KeyArtifactDir       = "ArtifactDir"
	KeyWaitTimeout       = "WaitTimeout"
	KeyPollInterval      = "PollInterval"
	KeyRandomSeed        = "RandomSeed"
	KeyLogLevel          = "LogLevel"
	KeyLogFormat         = "LogFormat"
	KeyMongoURI          = "MongoURI"
	KeyMongoDatabase     = "MongoDatabase"
	KeyHistoryPath       = "HistoryPath"
	KeyMetricsPath       = "MetricsPath"
	KeyParallel          = "Parallel"
	KeyLaunchesPerSecond = "LaunchesPerSecond"
)

// Parameters are read once at session setup and never change afterwards.
type Parameters struct {
	ApplicationURL            string
	PipelineRun               bool
	EnableIncognito           bool
	TargetBrowser             browser.Kind
	EdgeBrowserBinaryLocation string
	Headless                  bool
	Verbose                   bool

	ArtifactDir  string
	WaitTimeout  time.Duration
	PollInterval time.Duration
	RandomSeed   uint64
	LogLevel     string
	LogFormat    string

	MongoURI      string
	MongoDatabase string
	HistoryPath   string
	MetricsPath   string

	Parallel          int
	LaunchesPerSecond float64

	raw map[string]string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyApplicationURL, "https://www.wolframalpha.com/")
	v.SetDefault(KeyPipelineRun, "false")
	v.SetDefault(KeyEnableIncognito, "false")
	v.SetDefault(KeyTargetBrowser, "Chrome")
	v.SetDefault(KeyHeadless, "false")
	v.SetDefault(KeyVerbose, "true")
	v.SetDefault(KeyArtifactDir, ".")
	v.SetDefault(KeyWaitTimeout, "5s")
	v.SetDefault(KeyPollInterval, "250ms")
	v.SetDefault(KeyRandomSeed, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMongoDatabase, "webharness")
	v.SetDefault(KeyHistoryPath, "webharness-history.db")
	v.SetDefault(KeyParallel, 1)
	v.SetDefault(KeyLaunchesPerSecond, 1.0)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and builds Parameters.
func Load(v *viper.Viper, path string) (*Parameters, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return FromViper(v)
}

// DefaultParameters returns the parameters produced by defaults alone.
func DefaultParameters() *Parameters {
	v := viper.New()
	SetDefaults(v)
	p, err := FromViper(v)
	if err != nil {
		panic(fmt.Sprintf("invalid default parameters: %v", err))
	}
	return p
}

// FromViper builds Parameters from an already populated viper instance.
func FromViper(v *viper.Viper) (*Parameters, error) {
	p := &Parameters{
		ApplicationURL:            v.GetString(KeyApplicationURL),
		PipelineRun:               parseFlag(v.GetString(KeyPipelineRun)),
		EnableIncognito:           parseFlag(v.GetString(KeyEnableIncognito)),
		TargetBrowser:             browser.ParseKind(v.GetString(KeyTargetBrowser)),
		EdgeBrowserBinaryLocation: v.GetString(KeyEdgeBinary),
		Headless:                  parseFlag(v.GetString(KeyHeadless)),
		Verbose:                   parseFlag(v.GetString(KeyVerbose)),
		ArtifactDir:               v.GetString(KeyArtifactDir),
		WaitTimeout:               v.GetDuration(KeyWaitTimeout),
		PollInterval:              v.GetDuration(KeyPollInterval),
		RandomSeed:                v.GetUint64(KeyRandomSeed),
		LogLevel:                  v.GetString(KeyLogLevel),
		LogFormat:                 v.GetString(KeyLogFormat),
		MongoURI:                  v.GetString(KeyMongoURI),
		MongoDatabase:             v.GetString(KeyMongoDatabase),
		HistoryPath:               v.GetString(KeyHistoryPath),
		MetricsPath:               v.GetString(KeyMetricsPath),
		Parallel:                  v.GetInt(KeyParallel),
		LaunchesPerSecond:         v.GetFloat64(KeyLaunchesPerSecond),
		raw:                       make(map[string]string),
	}

	for _, key := range v.AllKeys() {
		p.raw[key] = v.GetString(key)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return p, nil
}

// parseFlag treats only "true", in any case, as true.
func parseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// Validate checks for sane timing and concurrency values. The browser kind
// is checked when a UI session starts, since non-UI tests never need it.
func (p *Parameters) Validate() error {
	var errs []error
	if p.WaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyWaitTimeout))
	}
	if p.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyPollInterval))
	} else if p.WaitTimeout > 0 && p.PollInterval > p.WaitTimeout {
		errs = append(errs, fmt.Errorf("%s must not exceed %s", KeyPollInterval, KeyWaitTimeout))
	}
	if p.Parallel < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyParallel))
	}
	if p.LaunchesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyLaunchesPerSecond))
	}
	return errors.Join(errs...)
}

// Lookup returns a raw parameter value by name, case-insensitively.
func (p *Parameters) Lookup(name string) (string, bool) {
	v, ok := p.raw[strings.ToLower(name)]
	return v, ok
}

// DriverConfig maps the parameters onto a browser configuration.
func (p *Parameters) DriverConfig(headless bool) *browser.DriverConfig {
	cfg := browser.DefaultDriverConfig()
	cfg.Browser = p.TargetBrowser
	cfg.Headless = headless
	cfg.Incognito = p.EnableIncognito
	cfg.PipelineRun = p.PipelineRun
	cfg.Verbose = p.Verbose
	if p.TargetBrowser == browser.Edge {
		cfg.BinaryLocation = p.EdgeBrowserBinaryLocation
	}
	return cfg
}
