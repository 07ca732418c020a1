package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataEndpoint string `yaml:"data_endpoint"`

	FetchLimit       int `yaml:"fetch_limit"`
	FetchWindowDays  int `yaml:"fetch_window_days"`
	RequestDelayMS   int `yaml:"request_delay_ms"`
	RequestTimeoutMS int `yaml:"request_timeout_ms"`

	RegistryPath string `yaml:"registry_path"`
	CachePath    string `yaml:"cache_path"`
	ModelPath    string `yaml:"model_path"`
	TollDataDir  string `yaml:"toll_data_dir"`
	TaxiPath     string `yaml:"taxi_path"`
}

func defaults() *Config {
	return &Config{
		DataEndpoint: "https://data.ny.gov/resource/wujg-7c2s.json",

		FetchLimit:       1000,
		FetchWindowDays:  7,
		RequestDelayMS:   500,
		RequestTimeoutMS: 30000,

		RegistryPath: "data/manhattan_stops.csv",
		CachePath:    "data/ridership_cache.csv",
		ModelPath:    "data/models.bson",
		TollDataDir:  "data/tollzone",
		TaxiPath:     "data/taxi_predictions.csv",
	}
}

// environmentVariables collects every CRZMAP_ prefixed variable from the
// process environment
func environmentVariables() map[string]string {
	env := map[string]string{}

	for _, variable := range os.Environ() {
		if !strings.HasPrefix(variable, "CRZMAP_") {
			continue
		}

		pair := strings.SplitN(variable, "=", 2)

		env[pair[0]] = pair[1]
	}

	return env
}

// Get returns the configuration assembled from defaults, the optional yaml
// file pointed at by CRZMAP_CONFIG, and finally CRZMAP_* environment variable
// overrides
func Get() (*Config, error) {
	config := defaults()

	env := environmentVariables()

	if configPath := env["CRZMAP_CONFIG"]; configPath != "" {
		fileBytes, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(fileBytes, config); err != nil {
			return nil, err
		}
	}

	if env["CRZMAP_DATA_ENDPOINT"] != "" {
		config.DataEndpoint = env["CRZMAP_DATA_ENDPOINT"]
	}

	if env["CRZMAP_FETCH_LIMIT"] != "" {
		if n, err := strconv.Atoi(env["CRZMAP_FETCH_LIMIT"]); err == nil {
			config.FetchLimit = n
		}
	}

	if env["CRZMAP_REGISTRY_PATH"] != "" {
		config.RegistryPath = env["CRZMAP_REGISTRY_PATH"]
	}

	if env["CRZMAP_CACHE_PATH"] != "" {
		config.CachePath = env["CRZMAP_CACHE_PATH"]
	}

	if env["CRZMAP_MODEL_PATH"] != "" {
		config.ModelPath = env["CRZMAP_MODEL_PATH"]
	}

	if env["CRZMAP_TOLL_DATA_DIR"] != "" {
		config.TollDataDir = env["CRZMAP_TOLL_DATA_DIR"]
	}

	if env["CRZMAP_TAXI_PATH"] != "" {
		config.TaxiPath = env["CRZMAP_TAXI_PATH"]
	}

	return config, nil
}
