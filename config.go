package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mefai-dev/mefai-dev/fetch"
)

// defaultListenAddr is the http listen address used when none is provided.
const defaultListenAddr = ":8080"

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the tracked markets.
	Markets []string
	// ExchangeBaseURL is the exchange api base url.
	ExchangeBaseURL string
	// RedisEndpoint is the snapshot cache endpoint.
	RedisEndpoint string
	// DatabaseEndpoint is the credential database endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the credential database user.
	DatabaseUser string
	// DatabasePass is the credential database user pass.
	DatabasePass string
	// ListenAddr is the http listen address.
	ListenAddr string
	// DefaultUser is the account served when a request does not name one.
	DefaultUser string
	// CandleLimit is the number of klines fetched per refresh.
	CandleLimit int
	// ATRPeriod is the average true range period.
	ATRPeriod int
	// SwingWindow is the number of recent candles scanned for swing points.
	SwingWindow int
	// CacheTTLSeconds is the snapshot time-to-live in seconds.
	CacheTTLSeconds int
	// RefreshIntervalSeconds is the interval between refresh ticks in seconds.
	RefreshIntervalSeconds int

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for analysis service"))
	}
	if cfg.RedisEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("redis endpoint cannot be an empty string"))
	}
	if cfg.DatabaseEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.CandleLimit < 0 {
		errs = errors.Join(errs, fmt.Errorf("candle limit cannot be negative"))
	}
	if cfg.CacheTTLSeconds < 0 {
		errs = errors.Join(errs, fmt.Errorf("cache ttl cannot be negative"))
	}
	if cfg.RefreshIntervalSeconds < 0 {
		errs = errors.Join(errs, fmt.Errorf("refresh interval cannot be negative"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("markets", &cfg.Markets, "the tracked markets")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("exchangebaseurl", &cfg.ExchangeBaseURL, "the exchange api base url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("redisendpoint", &cfg.RedisEndpoint, "the snapshot cache endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseendpoint", &cfg.DatabaseEndpoint, "the credential database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseuser", &cfg.DatabaseUser, "the credential database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databasepass", &cfg.DatabasePass, "the credential database user pass")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("listenaddr", &cfg.ListenAddr, "the http listen address")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("defaultuser", &cfg.DefaultUser, "the account served when a request does not name one")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("candlelimit", &cfg.CandleLimit, "the number of klines fetched per refresh")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("atrperiod", &cfg.ATRPeriod, "the average true range period")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("swingwindow", &cfg.SwingWindow, "the number of recent candles scanned for swing points")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("cachettl", &cfg.CacheTTLSeconds, "the snapshot time-to-live in seconds")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("refreshinterval", &cfg.RefreshIntervalSeconds, "the interval between refresh ticks in seconds")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.ExchangeBaseURL == "" {
		cfg.ExchangeBaseURL = fetch.BaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}

	return cfg.Validate()
}
