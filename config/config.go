package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qs-lzh/cinema-booking/internal/util"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DefaultFoodMenu is used when FOOD_MENU is not set.
const DefaultFoodMenu = "popcorn=150,sandwich=100"

type Config struct {
	Env         string `validate:"required,oneof=dev test prod"`
	Addr        string `validate:"required"`
	LogLevel    string `validate:"required,oneof=debug info warn error"`
	StoreDriver string `validate:"required,oneof=postgres memory"`
	DatabaseDSN string `validate:"required_if=StoreDriver postgres"`
	AutoMigrate bool
	CacheURL    string
	MQURL       string

	CancelCutoff          time.Duration  `validate:"gt=0"`
	LockTTL               time.Duration  `validate:"gt=0"`
	WaitlistSweepSchedule string         `validate:"required"`
	FoodMenu              map[string]int `validate:"min=1,dive,keys,required,endkeys,gt=0"`
}

func LoadConfig() (*Config, error) {
	if err := util.LoadEnv(); err != nil {
		return nil, err
	}

	cancelCutoff, err := getDuration("CANCEL_CUTOFF", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getDuration("LOCK_TTL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := getBool("DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}
	foodMenu, err := ParseFoodMenu(getEnv("FOOD_MENU", DefaultFoodMenu))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "dev"),
		Addr:                  getEnv("ADDR", ":4000"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		StoreDriver:           getEnv("STORE_DRIVER", StoreDriverPostgres),
		DatabaseDSN:           os.Getenv("DATABASE_DSN"),
		AutoMigrate:           autoMigrate,
		CacheURL:              os.Getenv("CACHE_URL"),
		MQURL:                 os.Getenv("RABBIT_MQ_URL"),
		CancelCutoff:          cancelCutoff,
		LockTTL:               lockTTL,
		WaitlistSweepSchedule: getEnv("WAITLIST_SWEEP_SCHEDULE", "@every 1m"),
		FoodMenu:              foodMenu,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ParseFoodMenu parses "item=price,item=price" into a price table.
func ParseFoodMenu(raw string) (map[string]int, error) {
	menu := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, price, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid food menu entry %q", pair)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		unit, err := strconv.Atoi(strings.TrimSpace(price))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %q: %w", name, err)
		}
		menu[name] = unit
	}
	return menu, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %w", key, err)
	}
	return b, nil
}
