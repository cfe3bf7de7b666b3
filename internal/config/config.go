package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Refresh intervals below the floor are replaced by it, never rejected.
	RefreshIntervalFloorMin = 5
)

type Config struct {
	InventoryAPIBaseURL string
	InventoryAPIToken   string
	InventoryRateRPS    int
	InventoryTimeoutMs  int

	SKUPrefix           string
	SKUSeparator        string
	SKUCategoryField    int
	SKUSubcategoryField int

	InternalOnlyMarker   string
	CategoryPriority     []string
	SubcategoryOptionCap int

	RefreshIntervalMin  int
	RefreshJitterMaxSec int

	ResultCacheSize  int
	ResultChunkLines int
	SessionTTLMin    int

	ChatAPIBaseURL     string
	ChatAPIToken       string
	ChatDefaultChannel string

	BotListenAddr string
	LogLevel      string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		InventoryAPIBaseURL: getEnv("INVENTORY_API_BASE_URL", ""),
		InventoryAPIToken:   getEnv("INVENTORY_API_TOKEN", ""),
		InventoryRateRPS:    getEnvInt("INVENTORY_RATE_LIMIT_RPS", 5),
		InventoryTimeoutMs:  getEnvInt("INVENTORY_TIMEOUT_MS", 30000),

		SKUPrefix:           strings.ToUpper(getEnv("SKU_PREFIX", "C")),
		SKUSeparator:        getEnv("SKU_SEPARATOR", "-"),
		SKUCategoryField:    getEnvInt("SKU_CATEGORY_FIELD", 2),
		SKUSubcategoryField: getEnvInt("SKU_SUBCATEGORY_FIELD", 1),

		InternalOnlyMarker:   getEnv("INTERNAL_ONLY_MARKER", "INTERNAL"),
		CategoryPriority:     getEnvList("CATEGORY_PRIORITY", nil),
		SubcategoryOptionCap: getEnvInt("SUBCATEGORY_OPTION_CAP", 100),

		RefreshIntervalMin:  getEnvInt("REFRESH_INTERVAL_MIN", 30),
		RefreshJitterMaxSec: getEnvInt("REFRESH_JITTER_MAX_SEC", 30),

		ResultCacheSize:  getEnvInt("RESULT_CACHE_SIZE", 256),
		ResultChunkLines: getEnvInt("RESULT_CHUNK_LINES", 40),
		SessionTTLMin:    getEnvInt("SESSION_TTL_MIN", 30),

		ChatAPIBaseURL:     getEnv("CHAT_API_BASE_URL", ""),
		ChatAPIToken:       getEnv("CHAT_API_TOKEN", ""),
		ChatDefaultChannel: getEnv("CHAT_DEFAULT_CHANNEL", ""),

		BotListenAddr: getEnv("BOT_LISTEN_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RefreshIntervalMin < RefreshIntervalFloorMin {
		cfg.RefreshIntervalMin = RefreshIntervalFloorMin
	}
	if cfg.RefreshJitterMaxSec < 0 {
		cfg.RefreshJitterMaxSec = 0
	}
	if cfg.SubcategoryOptionCap <= 0 {
		cfg.SubcategoryOptionCap = 100
	}
	if cfg.SKUCategoryField < 0 || cfg.SKUSubcategoryField < 0 {
		return Config{}, fmt.Errorf("SKU field indices must be non-negative: category=%d subcategory=%d", cfg.SKUCategoryField, cfg.SKUSubcategoryField)
	}
	if cfg.SKUSeparator == "" {
		return Config{}, fmt.Errorf("SKU_SEPARATOR must not be empty")
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
