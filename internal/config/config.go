package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ggonzalez94/creek-cli/internal/registry"
)

const (
	DefaultActionDelay  = time.Second
	DefaultRPCRateLimit = 10.0
	DefaultGasBudgetCap = uint64(50_000_000)
)

type GlobalFlags struct {
	ConfigPath    string
	JSON          bool
	Plain         bool
	Select        string
	ResultsOnly   bool
	EnableActions string
	Strict        bool
	Timeout       string
	Retries       int
	RPCURL        string
	APIURL        string
	ActionDelay   string
	LogLevel      string
	LogFormat     string
	LogFile       string
	NoCache       bool
}

// AmountSpec is an unresolved per-action amount choice, e.g. percent 50%.
type AmountSpec struct {
	Mode  string `yaml:"mode"`
	Value string `yaml:"value"`
}

type Settings struct {
	OutputMode    string
	SelectFields  []string
	ResultsOnly   bool
	EnableActions []string
	Strict        bool
	Timeout       time.Duration
	Retries       int

	Network      string
	RPCURL       string
	APIURL       string
	RPCRateLimit float64
	GasBudgetCap uint64
	ActionDelay  time.Duration

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	CacheEnabled    bool
	CachePath       string
	CacheLockPath   string
	ActionStorePath string
	ActionLockPath  string

	Amounts         map[string]AmountSpec
	ScheduleCron    string
	ScheduleActions []string
}

type fileConfig struct {
	Output        string                `yaml:"output"`
	Strict        *bool                 `yaml:"strict"`
	Timeout       string                `yaml:"timeout"`
	Retries       *int                  `yaml:"retries"`
	Network       string                `yaml:"network"`
	RPCURL        string                `yaml:"rpc_url"`
	APIURL        string                `yaml:"api_url"`
	RPCRateLimit  *float64              `yaml:"rpc_rate_limit"`
	GasBudgetCap  *uint64               `yaml:"gas_budget_cap"`
	ActionDelay   string                `yaml:"action_delay"`
	EnableActions []string              `yaml:"enable_actions"`
	Amounts       map[string]AmountSpec `yaml:"amounts"`
	Log           struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  *int   `yaml:"max_size_mb"`
		MaxBackups *int   `yaml:"max_backups"`
		MaxAgeDays *int   `yaml:"max_age_days"`
	} `yaml:"log"`
	Cache struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"cache"`
	Execution struct {
		ActionsPath     string `yaml:"actions_path"`
		ActionsLockPath string `yaml:"actions_lock_path"`
	} `yaml:"execution"`
	Schedule struct {
		Cron    string   `yaml:"cron"`
		Actions []string `yaml:"actions"`
	} `yaml:"schedule"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.RPCRateLimit <= 0 {
		settings.RPCRateLimit = DefaultRPCRateLimit
	}
	if settings.GasBudgetCap == 0 {
		settings.GasBudgetCap = DefaultGasBudgetCap
	}
	if settings.ActionDelay < 0 {
		settings.ActionDelay = 0
	}
	if settings.RPCURL == "" {
		rpcURL, err := registry.ResolveRPCURL("", settings.Network)
		if err != nil {
			return Settings{}, err
		}
		settings.RPCURL = rpcURL
	}
	if settings.APIURL == "" {
		if apiURL, ok := registry.DefaultAPIURL(settings.Network); ok {
			settings.APIURL = apiURL
		}
	}
	for _, endpoint := range []string{settings.RPCURL, settings.APIURL} {
		if endpoint != "" && !registry.IsAllowedEndpoint(endpoint) {
			return Settings{}, fmt.Errorf("endpoint %q must use https (http is allowed for loopback only)", endpoint)
		}
	}

	return settings, nil
}

// AmountFor returns the configured amount for action, if any.
func (s Settings) AmountFor(action string) (AmountSpec, bool) {
	spec, ok := s.Amounts[normalizeAction(action)]
	return spec, ok
}

// AmountActions lists actions that carry an amount override, sorted.
func (s Settings) AmountActions() []string {
	out := make([]string, 0, len(s.Amounts))
	for name := range s.Amounts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	cacheDir := filepath.Dir(cachePath)
	return Settings{
		OutputMode:      "json",
		Timeout:         30 * time.Second,
		Retries:         2,
		Network:         registry.NetworkTestnet,
		RPCRateLimit:    DefaultRPCRateLimit,
		GasBudgetCap:    DefaultGasBudgetCap,
		ActionDelay:     DefaultActionDelay,
		LogLevel:        "info",
		LogFormat:       "text",
		LogMaxSizeMB:    10,
		LogMaxBackups:   3,
		LogMaxAgeDays:   14,
		CacheEnabled:    true,
		CachePath:       cachePath,
		CacheLockPath:   lockPath,
		ActionStorePath: filepath.Join(cacheDir, "runs.db"),
		ActionLockPath:  filepath.Join(cacheDir, "runs.lock"),
		Amounts:         map[string]AmountSpec{},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	if v := strings.TrimSpace(os.Getenv("CREEK_CONFIG")); v != "" {
		return v, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "creek", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "creek")
	return filepath.Join(dir, "objects.db"), filepath.Join(dir, "objects.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Strict != nil {
		settings.Strict = *cfg.Strict
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Network != "" {
		settings.Network = strings.ToLower(strings.TrimSpace(cfg.Network))
	}
	if cfg.RPCURL != "" {
		settings.RPCURL = strings.TrimSpace(cfg.RPCURL)
	}
	if cfg.APIURL != "" {
		settings.APIURL = strings.TrimSpace(cfg.APIURL)
	}
	if cfg.RPCRateLimit != nil {
		settings.RPCRateLimit = *cfg.RPCRateLimit
	}
	if cfg.GasBudgetCap != nil {
		settings.GasBudgetCap = *cfg.GasBudgetCap
	}
	if cfg.ActionDelay != "" {
		d, err := time.ParseDuration(cfg.ActionDelay)
		if err != nil {
			return fmt.Errorf("config action_delay: %w", err)
		}
		settings.ActionDelay = d
	}
	if len(cfg.EnableActions) > 0 {
		settings.EnableActions = cleanList(cfg.EnableActions)
	}
	for name, spec := range cfg.Amounts {
		settings.Amounts[normalizeAction(name)] = AmountSpec{
			Mode:  strings.ToLower(strings.TrimSpace(spec.Mode)),
			Value: strings.TrimSpace(spec.Value),
		}
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = cfg.Log.Format
	}
	if cfg.Log.File != "" {
		settings.LogFile = cfg.Log.File
	}
	if cfg.Log.MaxSizeMB != nil {
		settings.LogMaxSizeMB = *cfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups != nil {
		settings.LogMaxBackups = *cfg.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays != nil {
		settings.LogMaxAgeDays = *cfg.Log.MaxAgeDays
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Execution.ActionsPath != "" {
		settings.ActionStorePath = cfg.Execution.ActionsPath
	}
	if cfg.Execution.ActionsLockPath != "" {
		settings.ActionLockPath = cfg.Execution.ActionsLockPath
	}
	if cfg.Schedule.Cron != "" {
		settings.ScheduleCron = strings.TrimSpace(cfg.Schedule.Cron)
	}
	if len(cfg.Schedule.Actions) > 0 {
		settings.ScheduleActions = cleanList(cfg.Schedule.Actions)
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("CREEK_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("CREEK_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Strict = b
		}
	}
	if v := os.Getenv("CREEK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("CREEK_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("CREEK_RPC_URL"); v != "" {
		settings.RPCURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("CREEK_API_URL"); v != "" {
		settings.APIURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("CREEK_RPC_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.RPCRateLimit = f
		}
	}
	if v := os.Getenv("CREEK_GAS_BUDGET_CAP"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			settings.GasBudgetCap = n
		}
	}
	if v := os.Getenv("CREEK_ACTION_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.ActionDelay = d
		}
	}
	if v := os.Getenv("CREEK_ENABLE_ACTIONS"); v != "" {
		settings.EnableActions = splitList(v)
	}
	if v := os.Getenv("CREEK_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("CREEK_LOG_FORMAT"); v != "" {
		settings.LogFormat = v
	}
	if v := os.Getenv("CREEK_LOG_FILE"); v != "" {
		settings.LogFile = v
	}
	if v := os.Getenv("CREEK_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("CREEK_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("CREEK_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv("CREEK_ACTIONS_PATH"); v != "" {
		settings.ActionStorePath = v
	}
	if v := os.Getenv("CREEK_ACTIONS_LOCK_PATH"); v != "" {
		settings.ActionLockPath = v
	}
	if v := os.Getenv("CREEK_SCHEDULE_CRON"); v != "" {
		settings.ScheduleCron = strings.TrimSpace(v)
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.Select) != "" {
		settings.SelectFields = splitList(flags.Select)
	}
	settings.ResultsOnly = flags.ResultsOnly

	if strings.TrimSpace(flags.EnableActions) != "" {
		settings.EnableActions = splitList(flags.EnableActions)
	}

	if flags.Strict {
		settings.Strict = true
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.RPCURL != "" {
		settings.RPCURL = strings.TrimSpace(flags.RPCURL)
	}
	if flags.APIURL != "" {
		settings.APIURL = strings.TrimSpace(flags.APIURL)
	}
	if flags.ActionDelay != "" {
		d, err := time.ParseDuration(flags.ActionDelay)
		if err != nil {
			return fmt.Errorf("parse --action-delay: %w", err)
		}
		settings.ActionDelay = d
	}
	if flags.LogLevel != "" {
		settings.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		settings.LogFormat = flags.LogFormat
	}
	if flags.LogFile != "" {
		settings.LogFile = flags.LogFile
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}

func splitList(raw string) []string {
	return cleanList(strings.Split(raw, ","))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeAction(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
