package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config хранит параметры запуска симуляции
type Config struct {
	// Seed - зерно RNG сессии (энкаунтеры, ИИ).
	Seed int64 `yaml:"seed"`

	TickMillis  uint32 `yaml:"tick_millis"`  // шаг кадра
	RoundMillis uint32 `yaml:"round_millis"` // длина раунда вне боя

	// ReviveDelayMillis - через сколько вне боя поднимается павший член партии.
	ReviveDelayMillis uint32 `yaml:"revive_delay_millis"`
	// DeathMarkerProp - проп, который остаётся на месте павшего в бою.
	DeathMarkerProp string `yaml:"death_marker_prop"`

	ElevationTolerance int    `yaml:"elevation_tolerance"`
	FeedbackTextMillis uint32 `yaml:"feedback_text_millis"`

	// TickScript - скрипт с хуком on_tick, вызывается каждый кадр.
	TickScript string `yaml:"tick_script"`
	// Party - шаблоны акторов стартовой партии.
	Party []string `yaml:"party"`

	ModuleDir   string `yaml:"module_dir"`
	ScriptDir   string `yaml:"script_dir"`
	SaveDir     string `yaml:"save_dir"`
	StartArea   string `yaml:"start_area"`
	WatchModule bool   `yaml:"watch_module"`
	Port        string `yaml:"port"`
}

// NewConfig создает конфиг по умолчанию (случайный сид)
func NewConfig() Config {
	return Config{
		Seed:               time.Now().UnixNano(),
		TickMillis:         16,
		RoundMillis:        5000,
		ReviveDelayMillis:  4000,
		DeathMarkerProp:    "bones",
		ElevationTolerance: 1,
		FeedbackTextMillis: 1500,
		ModuleDir:          "data/module",
		ScriptDir:          "data/module/scripts",
		SaveDir:            "saves",
		StartArea:          "start",
		Party:              []string{"hero"},
		Port:               "8080",
	}
}

// LoadConfig: значения по умолчанию, поверх них YAML (если файл есть),
// поверх - переменные окружения SIM_*.
func LoadConfig(path string) (Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// конфиг необязателен
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if cfg.TickMillis == 0 {
		return cfg, errors.New("config: tick_millis must be positive")
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: SIM_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("SIM_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("SIM_MODULE_DIR"); v != "" {
		c.ModuleDir = v
	}
	if v := os.Getenv("SIM_SCRIPT_DIR"); v != "" {
		c.ScriptDir = v
	}
	if v := os.Getenv("SIM_SAVE_DIR"); v != "" {
		c.SaveDir = v
	}
	return nil
}
