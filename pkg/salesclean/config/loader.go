package config

import "fmt"

// Loader reads the configuration files and returns a validated Config.
type Loader struct {
	ConfigPath string // optional YAML overlay on Default()
	CitiesPath string // optional city list replacing Config.Cities
}

// Load reads all configured files and returns the effective configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.ConfigPath != "" {
		c, err := LoadFile(l.ConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	if l.CitiesPath != "" {
		cities, err := LoadCities(l.CitiesPath)
		if err != nil {
			return Config{}, fmt.Errorf("load cities: %w", err)
		}
		cfg.Cities = cities
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
