package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"potencialize/internal/models"
	"potencialize/internal/sla"
)

const DefaultPath = "config/config.yaml"

type FilesConfig struct {
	RootDir  string `yaml:"root_dir"`
	FontPath string `yaml:"font_path"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"url"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
	Issuer string        `yaml:"issuer"`
}

type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type EmailConfig struct {
	SMTPHost      string `yaml:"smtp_host"`
	SMTPPort      int    `yaml:"smtp_port"`
	SMTPUser      string `yaml:"smtp_user"`
	SMTPPassword  string `yaml:"smtp_password"`
	FromEmail     string `yaml:"from_email"`
	WelcomeEmails int    `yaml:"welcome_sequence"`
}

type TelegramConfig struct {
	BotToken  string `yaml:"bot_token"`
	OpsChatID int64  `yaml:"ops_chat_id"`
}

type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AutomationConfig drives the cascade rules.
type AutomationConfig struct {
	MembershipProduct     string `yaml:"membership_product"`
	MembershipRole        string `yaml:"membership_role"`
	LeadDefaultProduct    string `yaml:"lead_default_product"`
	LeadDefaultOwner      string `yaml:"lead_default_owner"`
	ProjectDurationMonths int    `yaml:"project_duration_months"`
	DefaultAssignee       string `yaml:"default_assignee"`
	CodeAttempts          int    `yaml:"code_attempts"`
}

type JobsConfig struct {
	OutboxDrain string `yaml:"outbox_drain"`
	SLARefresh  string `yaml:"sla_refresh"`
	ResumeRuns  string `yaml:"resume_runs"`
}

type OutboxConfig struct {
	Path        string `yaml:"path"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		Swagger         bool          `yaml:"swagger"`
	} `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Logger     LoggerConfig     `yaml:"logger"`
	Email      EmailConfig      `yaml:"email"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	AI         AIConfig         `yaml:"ai"`
	Files      FilesConfig      `yaml:"files"`
	SLA        sla.Thresholds   `yaml:"sla"`
	Automation AutomationConfig `yaml:"automation"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	Roles      []models.Role    `yaml:"roles"`
}

// LoadConfig reads the YAML file after loading .env, expanding ${VAR}
// references from the environment.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Database.Name == "" {
		c.Database.Name = "potencialize"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24 * time.Hour
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Email.WelcomeEmails == 0 {
		c.Email.WelcomeEmails = 5
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.mistral.ai/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "mistral-small-latest"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30 * time.Second
	}
	def := sla.DefaultThresholds()
	if c.SLA.Warning == 0 {
		c.SLA.Warning = def.Warning
	}
	if c.SLA.Breach == 0 {
		c.SLA.Breach = def.Breach
	}
	a := &c.Automation
	if a.MembershipProduct == "" {
		a.MembershipProduct = "Potencialize Club"
	}
	if a.MembershipRole == "" {
		a.MembershipRole = "club_member"
	}
	if a.LeadDefaultProduct == "" {
		a.LeadDefaultProduct = "Diagnóstico"
	}
	if a.ProjectDurationMonths == 0 {
		a.ProjectDurationMonths = 6
	}
	if a.DefaultAssignee == "" {
		a.DefaultAssignee = "Sistema"
	}
	if a.CodeAttempts == 0 {
		a.CodeAttempts = 3
	}
	if c.Jobs.OutboxDrain == "" {
		c.Jobs.OutboxDrain = "@every 1m"
	}
	if c.Jobs.SLARefresh == "" {
		c.Jobs.SLARefresh = "@every 5m"
	}
	if c.Jobs.ResumeRuns == "" {
		c.Jobs.ResumeRuns = "@every 10m"
	}
	if c.Outbox.Path == "" {
		c.Outbox.Path = "./data/outbox.db"
	}
	if c.Outbox.MaxAttempts == 0 {
		c.Outbox.MaxAttempts = 5
	}
}

func (c *Config) validate() error {
	if c.SLA.Warning >= c.SLA.Breach {
		return fmt.Errorf("sla.warning (%s) must be below sla.breach (%s)", c.SLA.Warning, c.SLA.Breach)
	}
	for _, r := range c.Roles {
		if r.ID == "" {
			return fmt.Errorf("role without id in config")
		}
	}
	return nil
}
