// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ShopItem — одна позиция каталога магазина: id, название, цена.
// Каталог загружается один раз при старте и не меняется в рантайме.
type ShopItem struct {
	ID    string
	Label string
	Cost  int64
}

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Discord ---
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	// ID сервера, на котором регистрируются slash-команды.
	// Пустое значение = глобальная регистрация (медленнее обновляется).
	GuildID string `envconfig:"GUILD_ID" default:""`
	// Имя канала, в который бот публикует панель «Создать отчёт»
	ReportChannelName string `envconfig:"REPORT_CHANNEL_NAME" default:"отчёты"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"discord_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Points ---
	// Допустимый диапазон суммы в заявке "+N"
	PointsMin int64 `envconfig:"POINTS_MIN" default:"1"`
	PointsMax int64 `envconfig:"POINTS_MAX" default:"1000"`

	// --- Voice ---
	// Сколько баллов начисляется за каждый полный час в войсе
	VoicePointsPerHour int64 `envconfig:"VOICE_POINTS_PER_HOUR" default:"10"`

	// --- Reports ---
	// Требовать ли скриншот (вложение) в сообщении-заявке
	ReportRequireAttachment bool `envconfig:"REPORT_REQUIRE_ATTACHMENT" default:"true"`
	// Имена ролей, которым разрешено одобрять заявки (через запятую).
	// Пустой список = только администраторы сервера.
	ModeratorRolesRaw string   `envconfig:"MODERATOR_ROLES" default:""`
	ModeratorRoles    []string `envconfig:"-"` // заполним вручную

	// --- Shop ---
	// Каталог в формате "id:название:цена;id:название:цена;..."
	ShopItemsRaw string     `envconfig:"SHOP_ITEMS" default:"nitro:Nitro на месяц:500;vip:VIP-роль:300;color:Кастомный цвет ника:150"`
	ShopItems    []ShopItem `envconfig:"-"` // заполним вручную

	// --- Jobs ---
	// Расписание ежемесячного сброса (cron-выражение)
	ResetCron string `envconfig:"RESET_CRON" default:"0 0 1 * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.PointsMin < 1 || c.PointsMax < c.PointsMin {
		return fmt.Errorf("некорректные POINTS_MIN/POINTS_MAX")
	}
	if c.VoicePointsPerHour < 0 {
		return fmt.Errorf("VOICE_POINTS_PER_HOUR не может быть отрицательным")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.ShopItems) == 0 {
		return fmt.Errorf("каталог магазина пуст (SHOP_ITEMS)")
	}
	return nil
}

// Location возвращает часовой пояс приложения.
// Если загрузить не удалось — UTC+3 вручную (бот русскоязычный).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.ModeratorRoles = parseCSV(cfg.ModeratorRolesRaw)

	items, err := ParseShopItems(cfg.ShopItemsRaw)
	if err != nil {
		return nil, fmt.Errorf("SHOP_ITEMS parse: %w", err)
	}
	cfg.ShopItems = items

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseCSV разбирает список значений через запятую, отбрасывая пустые.
func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseShopItems разбирает каталог магазина из строки
// вида "id:название:цена;id:название:цена".
func ParseShopItems(s string) ([]ShopItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var items []ShopItem
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("ожидается id:название:цена, получено %q", part)
		}
		cost, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil || cost <= 0 {
			return nil, fmt.Errorf("некорректная цена в %q", part)
		}
		items = append(items, ShopItem{
			ID:    strings.TrimSpace(fields[0]),
			Label: strings.TrimSpace(fields[1]),
			Cost:  cost,
		})
	}
	return items, nil
}
