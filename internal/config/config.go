package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/sensor"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval = time.Second
	DefaultLogLevel = string(LogLevelWarning)
	DefaultSensor   = sensor.DefaultPreferred

	appName       = "ressmon"
	configType    = "toml"
	envPrefix     = "RESSMON"
	envConfigFile = "RESSMON_CONFIG"
)

type Config struct {
	Interval     time.Duration `mapstructure:"-"`
	LogLevel     string        `mapstructure:"log_level"`
	Sensor       string        `mapstructure:"sensor"`
	Monitor      bool          `mapstructure:"monitor"`
	Output       string        `mapstructure:"output"`
	ListSensors  bool          `mapstructure:"list_sensors"`
	SelectSensor string        `mapstructure:"select_sensor"`

	// ConfigFile is the file that was read, or the per-user file when none
	// was found.
	ConfigFile string `mapstructure:"-"`

	// explicit is set when ConfigFile came from --config or RESSMON_CONFIG.
	explicit bool
}

func (c *Config) GetInterval() time.Duration { return c.Interval }
func (c *Config) GetLogLevel() string        { return c.LogLevel }
func (c *Config) GetSensor() string          { return c.Sensor }
func (c *Config) IsMonitorMode() bool        { return c.Monitor }
func (c *Config) GetOutput() string          { return c.Output }

// Load reads the configuration file, environment and command line flags, in
// increasing order of precedence, and validates the result.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		args: os.Args[1:],
	}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	v.SetDefault("interval", DefaultInterval.String())
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sensor", DefaultSensor)
	v.SetDefault("monitor", false)
	v.SetDefault("output", "")
	v.SetDefault("list_sensors", false)
	v.SetDefault("select_sensor", "")

	// Define flags
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.String("config", "", "Path to the configuration file")
	flags.Duration("interval", DefaultInterval, "Interval between samples")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("sensor", DefaultSensor, "Preferred temperature sensor label")
	flags.Bool("monitor", false, "Log snapshots instead of drawing the panel")
	flags.String("output", "", "Print one snapshot and exit (json, yaml)")
	flags.Bool("list-sensors", false, "List temperature sensors and exit")
	flags.String("select-sensor", "", "Save the preferred sensor to the configuration file and exit")

	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}

	for key, flag := range map[string]string{
		"interval":      "interval",
		"log_level":     "log-level",
		"sensor":        "sensor",
		"monitor":       "monitor",
		"output":        "output",
		"list_sensors":  "list-sensors",
		"select_sensor": "select-sensor",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	configFile, explicit, err := readConfig(v, o, flags)
	if err != nil {
		return nil, err
	}

	config := &Config{ConfigFile: configFile, explicit: explicit}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if config.Interval, err = parseInterval(v.Get("interval")); err != nil {
		return nil, err
	}

	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.Output = strings.ToLower(strings.TrimSpace(config.Output))
	config.Sensor = strings.TrimSpace(config.Sensor)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// readConfig loads the TOML file and returns its path and whether the path
// was given explicitly. A missing file is not an error.
func readConfig(v *viper.Viper, o *options, flags *pflag.FlagSet) (string, bool, error) {
	path := o.configPath
	if path == "" {
		path, _ = flags.GetString("config")
	}
	if path == "" {
		path = os.Getenv(envConfigFile)
	}

	v.SetConfigType(configType)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return path, true, nil
			}
			return "", true, errors.New().Wrap(errors.ErrReadConfig, err)
		}
		return path, true, nil
	}

	v.SetConfigName(appName)
	for _, dir := range searchPaths() {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return "", false, errors.New().Wrap(errors.ErrReadConfig, err)
		}
		return DefaultConfigPath(), false, nil
	}

	return v.ConfigFileUsed(), false, nil
}

func searchPaths() []string {
	var paths []string
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		paths = append(paths, filepath.Join(dir, appName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	return append(paths, "/etc")
}

// DefaultConfigPath is the per-user configuration file location.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = os.TempDir()
		}
	}

	return filepath.Join(dir, appName, appName+"."+configType)
}

// parseInterval accepts a duration string ("500ms", "2s") or a bare number
// of seconds.
func parseInterval(value any) (time.Duration, error) {
	invalid := func() error {
		return errors.New().WithData(errors.ErrInvalidInterval, value)
	}

	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		s := strings.TrimSpace(v)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, invalid()
		}
		return d, nil
	default:
		return 0, invalid()
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if !OutputFormat(c.Output).IsValid() {
		return errFactory.WithData(errors.ErrInvalidOutput, c.Output)
	}

	return nil
}

// SensorFile is where the preferred sensor is saved: the explicit config
// file if one was given, otherwise the per-user file. A file found in /etc
// is never written.
func (c *Config) SensorFile() string {
	if c.explicit {
		return c.ConfigFile
	}
	return DefaultConfigPath()
}

// SaveSensor persists label to SensorFile and returns the path written. When
// that differs from the file that was loaded, the loaded keys are carried
// over so the new file does not hide them.
func (c *Config) SaveSensor(label string) (string, error) {
	path := c.SensorFile()
	if err := saveSensor(c.ConfigFile, path, label); err != nil {
		return "", err
	}
	return path, nil
}

// SaveSensor persists label as the preferred sensor in the file at path,
// keeping any other keys already there.
func SaveSensor(path, label string) error {
	return saveSensor(path, path, label)
}

func saveSensor(from, to, label string) error {
	errFactory := errors.New()

	v := viper.New()
	v.SetConfigType(configType)

	// Keys already in the target win over the loaded file.
	paths := []string{from}
	if to != from {
		paths = append(paths, to)
	}
	for _, path := range paths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !os.IsNotExist(err) {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v.Set("sensor", label)

	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	if err := v.WriteConfigAs(to); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	return nil
}

// WatchSensor calls fn with the saved sensor label whenever SensorFile is
// written, by this process or by another one running --select-sensor. The
// watch lasts for the life of the process.
func (c *Config) WatchSensor(fn func(label string)) error {
	errFactory := errors.New()
	path := c.SensorFile()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrWatchConfig, err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	v.OnConfigChange(func(in fsnotify.Event) {
		if label := strings.TrimSpace(v.GetString("sensor")); label != "" {
			fn(label)
		}
	})
	v.WatchConfig()

	return nil
}
