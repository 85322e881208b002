package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers understood by pkg/database.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Session backends understood by internal/session.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
	SessionBolt   = "bolt"
)

type Config struct {
	Env  string
	Port int

	Bot       BotConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Log       LogConfig
	Notify    NotifyConfig
	Reminders ReminderConfig
	Exports   ExportsConfig
}

// BotConfig carries the chat-side settings.
type BotConfig struct {
	Token           string
	TeacherCode     string
	TeacherCodeHash string
	Timezone        string
	UseWebhook      bool
	WebhookURL      string
	WebhookPath     string
	PollTimeout     int
	UpdateBuffer    int
	TasksPageSize   int
	Debug           bool
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig selects where conversation state lives.
type SessionConfig struct {
	Backend   string
	TTL       time.Duration
	BoltPath  string
	KeyPrefix string
}

type LogConfig struct {
	Level  string
	Format string
}

// NotifyConfig sizes the outbound notification worker pool.
type NotifyConfig struct {
	Workers    int
	Buffer     int
	Retries    int
	RetryDelay time.Duration
}

// ReminderConfig controls reminder lead times and the weekly parent digest.
type ReminderConfig struct {
	LessonLead          time.Duration
	DeadlineLeads       []time.Duration
	WeeklyReportWeekday time.Weekday
	WeeklyReportHour    int
	WeeklyReportMinute  int
}

// ExportsConfig controls where gradebook exports are archived.
type ExportsConfig struct {
	StorageDir string
	Retention  time.Duration
	FontPath   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Bot = BotConfig{
		Token:           v.GetString("BOT_TOKEN"),
		TeacherCode:     v.GetString("TEACHER_CODE"),
		TeacherCodeHash: v.GetString("TEACHER_CODE_HASH"),
		Timezone:        v.GetString("TZ"),
		UseWebhook:      v.GetBool("USE_WEBHOOK"),
		WebhookURL:      v.GetString("WEBHOOK_URL"),
		WebhookPath:     v.GetString("WEBHOOK_PATH"),
		PollTimeout:     v.GetInt("POLL_TIMEOUT"),
		UpdateBuffer:    v.GetInt("UPDATE_BUFFER"),
		TasksPageSize:   v.GetInt("TASKS_PAGE_SIZE"),
		Debug:           v.GetBool("BOT_DEBUG"),
	}

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		SQLitePath:   v.GetString("SQLITE_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Backend:   strings.ToLower(v.GetString("SESSION_BACKEND")),
		TTL:       parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		BoltPath:  v.GetString("BOLT_PATH"),
		KeyPrefix: v.GetString("SESSION_KEY_PREFIX"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Buffer:     v.GetInt("NOTIFY_BUFFER"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
	}

	hour, minute := parseClock(v.GetString("WEEKLY_REPORT_TIME"), 9, 0)
	cfg.Reminders = ReminderConfig{
		LessonLead:          parseDuration(v.GetString("LESSON_REMINDER_LEAD"), time.Hour),
		DeadlineLeads:       parseDurations(v.GetString("DEADLINE_REMINDER_LEADS"), []time.Duration{24 * time.Hour, 2 * time.Hour}),
		WeeklyReportWeekday: parseWeekday(v.GetString("WEEKLY_REPORT_WEEKDAY"), time.Monday),
		WeeklyReportHour:    hour,
		WeeklyReportMinute:  minute,
	}

	cfg.Exports = ExportsConfig{
		StorageDir: v.GetString("EXPORTS_DIR"),
		Retention:  parseDuration(v.GetString("EXPORTS_RETENTION"), 7*24*time.Hour),
		FontPath:   v.GetString("EXPORTS_FONT"),
	}

	return cfg, nil
}

// Location resolves the configured bot timezone, falling back to UTC.
func (c BotConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("TEACHER_CODE", "teacher")
	v.SetDefault("TEACHER_CODE_HASH", "")
	v.SetDefault("TZ", "Europe/Moscow")
	v.SetDefault("USE_WEBHOOK", false)
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("WEBHOOK_PATH", "/telegram/webhook")
	v.SetDefault("POLL_TIMEOUT", 60)
	v.SetDefault("UPDATE_BUFFER", 100)
	v.SetDefault("TASKS_PAGE_SIZE", 3)
	v.SetDefault("BOT_DEBUG", false)

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutorbot")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "bot.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_BACKEND", SessionMemory)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BOLT_PATH", "sessions.db")
	v.SetDefault("SESSION_KEY_PREFIX", "tutorbot:session:")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER", 256)
	v.SetDefault("NOTIFY_RETRIES", 1)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")

	v.SetDefault("LESSON_REMINDER_LEAD", "1h")
	v.SetDefault("DEADLINE_REMINDER_LEADS", "24h,2h")
	v.SetDefault("WEEKLY_REPORT_WEEKDAY", "monday")
	v.SetDefault("WEEKLY_REPORT_TIME", "09:00")

	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_RETENTION", "168h")
	v.SetDefault("EXPORTS_FONT", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDurations(raw string, fallback []time.Duration) []time.Duration {
	parts := splitAndTrim(raw)
	if len(parts) == 0 {
		return fallback
	}
	result := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil || d <= 0 {
			continue
		}
		result = append(result, d)
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func parseWeekday(raw string, fallback time.Weekday) time.Weekday {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sunday", "sun":
		return time.Sunday
	case "monday", "mon":
		return time.Monday
	case "tuesday", "tue":
		return time.Tuesday
	case "wednesday", "wed":
		return time.Wednesday
	case "thursday", "thu":
		return time.Thursday
	case "friday", "fri":
		return time.Friday
	case "saturday", "sat":
		return time.Saturday
	default:
		return fallback
	}
}

func parseClock(raw string, fallbackHour, fallbackMinute int) (int, int) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return fallbackHour, fallbackMinute
	}
	return t.Hour(), t.Minute()
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
