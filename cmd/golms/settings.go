package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	goLMS "github.com/MrEthical07/goLMS"
)

// settings are the resolved CLI options. Flags win over GOLMS_* environment
// variables, which win over defaults.
type settings struct {
	Origin    string
	Transport string
	Tenant    string
	TokenFile string
	Redis     string
	Timeout   time.Duration
}

// loadSettings reads an optional .env file, then the GOLMS_* environment.
func loadSettings(envFile string) (settings, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return settings{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return settings{}, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("origin", "http://localhost:8080")
	v.SetDefault("transport", goLMS.TransportSSE)
	v.SetDefault("tenant", "")
	v.SetDefault("token_file", defaultTokenFile())
	v.SetDefault("redis", "")
	v.SetDefault("timeout", 15*time.Second)
	v.SetEnvPrefix("golms")
	v.AutomaticEnv()

	return settings{
		Origin:    v.GetString("origin"),
		Transport: v.GetString("transport"),
		Tenant:    v.GetString("tenant"),
		TokenFile: v.GetString("token_file"),
		Redis:     v.GetString("redis"),
		Timeout:   v.GetDuration("timeout"),
	}, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "golms", "token")
}

func (s settings) config() goLMS.Config {
	cfg := goLMS.DefaultConfig()
	cfg.API.Origin = s.Origin
	cfg.API.Timeout = s.Timeout
	cfg.API.UserAgent = "golms-cli/" + version
	cfg.Push.Transport = s.Transport
	cfg.Push.ConnectOnLogin = false
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
