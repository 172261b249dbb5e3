// Package config loads the bot configuration and the service catalog.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"barberbot/internal/slots"
)

// DefaultPath is used when BARBER_CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Owner struct {
		Phone   string `yaml:"phone"`
		BotName string `yaml:"bot_name"`
	} `yaml:"owner"`

	Schedule struct {
		WorkStart          string `yaml:"work_start"`
		WorkEnd            string `yaml:"work_end"`
		LunchStart         string `yaml:"lunch_start"`
		LunchEnd           string `yaml:"lunch_end"`
		GranularityMinutes int    `yaml:"granularity_minutes"`
		DayOff             string `yaml:"day_off"`
		HorizonDays        int    `yaml:"horizon_days"`
		MenuDays           int    `yaml:"menu_days"`
		Timezone           string `yaml:"timezone"`
	} `yaml:"schedule"`

	Sessions struct {
		Backend              string `yaml:"backend"`
		BookingTTLMinutes    int    `yaml:"booking_ttl_minutes"`
		FinancialTTLMinutes  int    `yaml:"financial_ttl_minutes"`
		SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
	} `yaml:"sessions"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Events struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"events"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		GRPCHealthPort    int  `yaml:"grpc_health_port"` // 0 disables
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	API struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"api"`

	Outbound struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"outbound"`

	Reminders struct {
		Enabled              bool `yaml:"enabled"`
		HoursBefore          int  `yaml:"hours_before"`
		CheckIntervalMinutes int  `yaml:"check_interval_minutes"`
	} `yaml:"reminders"`

	Export struct {
		Path string `yaml:"path"`
	} `yaml:"export"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	ServicesPath string `yaml:"services_path"`
}

// Load reads path, or DefaultPath when empty. A .env file next to the
// working directory is loaded first so ${VAR} placeholders can use it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML after expanding ${ENV_VAR} placeholders, applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/barberbot.db"
	}
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	}
	if cfg.Export.Path == "" {
		cfg.Export.Path = "exports"
	}
	if cfg.ServicesPath == "" {
		cfg.ServicesPath = "configs/services.yaml"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the schedule and required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", ErrInvalid)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: schedule.timezone: %v", ErrInvalid, err)
	}
	if _, _, err := c.dayOff(); err != nil {
		return err
	}

	s := c.ScheduleSettings(nil)
	start, err := slots.ParseClock(s.WorkStart)
	if err != nil {
		return fmt.Errorf("%w: schedule.work_start: %v", ErrInvalid, err)
	}
	end, err := slots.ParseClock(s.WorkEnd)
	if err != nil {
		return fmt.Errorf("%w: schedule.work_end: %v", ErrInvalid, err)
	}
	if end <= start {
		return fmt.Errorf("%w: schedule.work_end must be after work_start", ErrInvalid)
	}
	if s.LunchStart != "" || s.LunchEnd != "" {
		ls, err := slots.ParseClock(s.LunchStart)
		if err != nil {
			return fmt.Errorf("%w: schedule.lunch_start: %v", ErrInvalid, err)
		}
		le, err := slots.ParseClock(s.LunchEnd)
		if err != nil {
			return fmt.Errorf("%w: schedule.lunch_end: %v", ErrInvalid, err)
		}
		if le <= ls || ls < start || le > end {
			return fmt.Errorf("%w: lunch window must lie inside the working day", ErrInvalid)
		}
	}
	if s.Granularity <= 0 {
		return fmt.Errorf("%w: schedule.granularity_minutes must be positive", ErrInvalid)
	}

	switch c.SessionBackend() {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: sessions.backend must be memory or redis", ErrInvalid)
	}
	if c.SessionBackend() == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("%w: redis.address is required for the redis session backend", ErrInvalid)
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "segunda": time.Monday,
	"tuesday": time.Tuesday, "terça": time.Tuesday, "terca": time.Tuesday,
	"wednesday": time.Wednesday, "quarta": time.Wednesday,
	"thursday": time.Thursday, "quinta": time.Thursday,
	"friday": time.Friday, "sexta": time.Friday,
	"saturday": time.Saturday, "sábado": time.Saturday, "sabado": time.Saturday,
}

// dayOff returns the weekly closed day. An empty value means Sunday and
// "none" means the shop opens every day.
func (c *Config) dayOff() (time.Weekday, bool, error) {
	v := strings.ToLower(strings.TrimSpace(c.Schedule.DayOff))
	switch v {
	case "":
		return time.Sunday, true, nil
	case "none", "nenhum":
		return 0, false, nil
	}
	d, ok := weekdays[v]
	if !ok {
		return 0, false, fmt.Errorf("%w: schedule.day_off %q", ErrInvalid, c.Schedule.DayOff)
	}
	return d, true, nil
}

// ScheduleSettings builds the slot schedule, merging the catalog holidays.
func (c *Config) ScheduleSettings(holidays []string) slots.Schedule {
	s := slots.DefaultSchedule()
	if c.Schedule.WorkStart != "" {
		s.WorkStart = c.Schedule.WorkStart
	}
	if c.Schedule.WorkEnd != "" {
		s.WorkEnd = c.Schedule.WorkEnd
	}
	if c.Schedule.LunchStart != "" || c.Schedule.LunchEnd != "" {
		s.LunchStart = c.Schedule.LunchStart
		s.LunchEnd = c.Schedule.LunchEnd
	}
	if c.Schedule.GranularityMinutes != 0 {
		s.Granularity = c.Schedule.GranularityMinutes
	}
	if d, ok, err := c.dayOff(); err == nil {
		s.DayOff, s.HasDayOff = d, ok
	}
	s.Holidays = holidays
	return s
}

// Location returns the shop time zone, the process local zone by default.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

func (c *Config) HorizonDays() int {
	if c.Schedule.HorizonDays <= 0 {
		return 30
	}
	return c.Schedule.HorizonDays
}

func (c *Config) MenuDays() int {
	if c.Schedule.MenuDays <= 0 {
		return 7
	}
	return c.Schedule.MenuDays
}

func (c *Config) SessionBackend() string {
	if c.Sessions.Backend == "" {
		return "memory"
	}
	return strings.ToLower(c.Sessions.Backend)
}

// BookingTTL is zero by default: booking sessions never expire.
func (c *Config) BookingTTL() time.Duration {
	if c.Sessions.BookingTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Sessions.BookingTTLMinutes) * time.Minute
}

func (c *Config) FinancialTTL() time.Duration {
	if c.Sessions.FinancialTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Sessions.FinancialTTLMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	if c.Sessions.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Sessions.SweepIntervalSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

func (c *Config) ReminderLead() time.Duration {
	if c.Reminders.HoursBefore <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reminders.HoursBefore) * time.Hour
}

func (c *Config) ReminderInterval() time.Duration {
	if c.Reminders.CheckIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Reminders.CheckIntervalMinutes) * time.Minute
}

// OutboundLimit returns the send rate and burst for the transport.
func (c *Config) OutboundLimit() (float64, int) {
	r, b := c.Outbound.RatePerSecond, c.Outbound.Burst
	if r <= 0 {
		r = 20
	}
	if b <= 0 {
		b = 5
	}
	return r, b
}

func (c *Config) HealthPort() int {
	if c.Monitoring.HealthCheckPort <= 0 {
		return 8080
	}
	return c.Monitoring.HealthCheckPort
}

func (c *Config) MetricsPort() int {
	if c.Monitoring.PrometheusPort <= 0 {
		return 9090
	}
	return c.Monitoring.PrometheusPort
}

func (c *Config) APIPort() int {
	if c.API.Port <= 0 {
		return 8081
	}
	return c.API.Port
}

func (c *Config) EventsTopic() string {
	if c.Events.Topic == "" {
		return "barberbot.events"
	}
	return c.Events.Topic
}
