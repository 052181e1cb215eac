package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "https://api.binance.com"
	defaultListenAddr     = "127.0.0.1:8080"
	defaultPollInterval   = 30 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultLogLevel       = "info"

	envAPIKey    = "BINANCE_API_KEY"
	envAPISecret = "BINANCE_API_SECRET"
)

type Config struct {
	BaseURL        string
	ListenAddr     string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	RecvWindow     time.Duration
	TopSymbols     []string
	LogLevel       string
	// Prompt asks for credentials on the terminal when they are not in the environment.
	Prompt bool

	APIKey    string
	APISecret string
}

// String hides credentials from fmt output.
func (c Config) String() string {
	return fmt.Sprintf("Config{BaseURL:%s ListenAddr:%s PollInterval:%s RequestTimeout:%s RecvWindow:%s TopSymbols:%v LogLevel:%s}",
		c.BaseURL, c.ListenAddr, c.PollInterval, c.RequestTimeout, c.RecvWindow, c.TopSymbols, c.LogLevel)
}

type ConfigTmp struct {
	BaseURL        string        `yaml:"base_url"`
	ListenAddr     string        `yaml:"listen_addr"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RecvWindow     time.Duration `yaml:"recv_window,omitempty"`
	TopSymbols     []string      `yaml:"top_symbols,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
}

// Get reads configuration from command line arguments, an optional YAML file,
// a .env file in the working directory and the environment.
func Get() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse builds the configuration from args. Flags override the YAML file,
// which overrides the defaults.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("folio", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	baseURL := fs.String("base-url", "", "exchange REST base URL, example: https://api.binance.com")
	addr := fs.String("addr", "", "listen address of the local dashboard API")
	poll := fs.Duration("poll", 0, "portfolio refresh interval")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	noPrompt := fs.Bool("no-prompt", false, "do not ask for credentials on the terminal")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	conf := Config{
		BaseURL:        defaultBaseURL,
		ListenAddr:     defaultListenAddr,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
	}

	if *configPath != "" {
		if err := applyYaml(&conf, *configPath); err != nil {
			return Config{}, err
		}
	}

	if *baseURL != "" {
		conf.BaseURL = *baseURL
	}
	if *addr != "" {
		conf.ListenAddr = *addr
	}
	if *poll != 0 {
		conf.PollInterval = *poll
	}
	if *logLevel != "" {
		conf.LogLevel = *logLevel
	}
	conf.Prompt = !*noPrompt

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrap(err, "failed to load .env file")
	}
	conf.APIKey = strings.TrimSpace(os.Getenv(envAPIKey))
	conf.APISecret = strings.TrimSpace(os.Getenv(envAPISecret))

	if err := conf.validate(); err != nil {
		return Config{}, err
	}

	return conf, nil
}

func applyYaml(conf *Config, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return errors.Wrapf(err, "failed to parse yaml config %s", path)
	}

	if tmp.BaseURL != "" {
		conf.BaseURL = tmp.BaseURL
	}
	if tmp.ListenAddr != "" {
		conf.ListenAddr = tmp.ListenAddr
	}
	if tmp.PollInterval != 0 {
		conf.PollInterval = tmp.PollInterval
	}
	if tmp.RequestTimeout != 0 {
		conf.RequestTimeout = tmp.RequestTimeout
	}
	if tmp.RecvWindow != 0 {
		conf.RecvWindow = tmp.RecvWindow
	}
	if tmp.LogLevel != "" {
		conf.LogLevel = tmp.LogLevel
	}
	for _, s := range tmp.TopSymbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			return fmt.Errorf("incorrect 'top_symbols' param in yaml config: empty symbol")
		}
		conf.TopSymbols = append(conf.TopSymbols, s)
	}

	return nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("incorrect 'base_url' param: %q, must be an absolute URL", c.BaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("incorrect 'poll_interval' param: %s, must be positive", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("incorrect 'request_timeout' param: %s, must be positive", c.RequestTimeout)
	}
	// binance rejects recvWindow above 60s
	if c.RecvWindow < 0 || c.RecvWindow > 60*time.Second {
		return fmt.Errorf("incorrect 'recv_window' param: %s, must be between 0 and 60s", c.RecvWindow)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("incorrect 'log_level' param: %q", c.LogLevel)
	}
	return nil
}
