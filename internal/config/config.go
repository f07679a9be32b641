// Package config loads the application configuration: a YAML file for
// behavior, environment variables for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mail transport selectors.
const (
	TransportAPI  = "api"
	TransportSMTP = "smtp"
	TransportNone = "none"
)

// MailAPI holds the transactional-email transport settings. The client
// credentials come from MAIL_CLIENT_ID / MAIL_CLIENT_SECRET in the
// environment.
type MailAPI struct {
	BaseURL     string `yaml:"base_url"`
	SenderEmail string `yaml:"sender_email"`
	TemplateID  string `yaml:"template_id"`
}

// SMTP holds the direct-submission transport settings. The password comes
// from SMTP_PASSWORD in the environment.
type SMTP struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SenderEmail string `yaml:"sender_email"`
}

// Config holds all application configuration.
type Config struct {
	MirrorURL            string   `yaml:"mirror_url"`
	TrendingURL          string   `yaml:"trending_url"`
	TopRepos             int      `yaml:"top_repos"`
	DetailDelaySecs      int      `yaml:"detail_delay_secs"`
	RepoFetchTimeoutSecs int      `yaml:"repo_fetch_timeout_secs"`
	Model                string   `yaml:"model"`
	SummaryLanguage      string   `yaml:"summary_language"`
	SummaryBudget        int      `yaml:"summary_budget"`
	MaterialsDir         string   `yaml:"materials_dir"`
	TemplatePath         string   `yaml:"template_path"`
	Subject              string   `yaml:"subject"`
	Recipients           []string `yaml:"recipients"`
	MailTransport        string   `yaml:"mail_transport"`
	MailAPI              MailAPI  `yaml:"mail_api"`
	SMTP                 SMTP     `yaml:"smtp"`
	SendTime             string   `yaml:"send_time"`
	Timezone             string   `yaml:"timezone"`
	LogLevel             string   `yaml:"log_level"`
}

// Defaults returns a Config with all default values set.
func Defaults() Config {
	return Config{
		MirrorURL:            "https://hf-mirror.com",
		TrendingURL:          "https://github.com/trending",
		TopRepos:             10,
		DetailDelaySecs:      1,
		RepoFetchTimeoutSecs: 600,
		Model:                "gpt-4o-mini",
		SummaryLanguage:      "Chinese",
		SummaryBudget:        400,
		MaterialsDir:         "./materials",
		Subject:              "PaperPulse: Your Daily Latest Paper Acquisition Assistant",
		MailTransport:        TransportNone,
		SendTime:             "23:00",
		Timezone:             "Local",
		LogLevel:             "info",
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// PAPERPULSE_CONFIG overrides the file path; PAPERPULSE_MATERIALS overrides
// the materials directory. A missing file with no explicit path yields the
// plain defaults.
func Load(path string) (Config, error) {
	if envPath := os.Getenv("PAPERPULSE_CONFIG"); envPath != "" {
		path = envPath
	}

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if envDir := os.Getenv("PAPERPULSE_MATERIALS"); envDir != "" {
		cfg.MaterialsDir = envDir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	switch c.MailTransport {
	case TransportAPI, TransportSMTP, TransportNone:
	default:
		return fmt.Errorf("mail_transport must be %q, %q or %q, got %q",
			TransportAPI, TransportSMTP, TransportNone, c.MailTransport)
	}

	if c.MailTransport != TransportNone && len(c.Recipients) == 0 {
		return fmt.Errorf("recipients is required when mail_transport is %q", c.MailTransport)
	}

	if err := ValidateTime(c.SendTime); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if c.TopRepos <= 0 {
		return fmt.Errorf("top_repos must be positive, got %d", c.TopRepos)
	}
	if c.RepoFetchTimeoutSecs <= 0 {
		return fmt.Errorf("repo_fetch_timeout_secs must be positive, got %d", c.RepoFetchTimeoutSecs)
	}
	return nil
}

// ValidateTime checks that a time string is in HH:MM 24-hour format.
func ValidateTime(t string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("invalid time format %q: must be HH:MM", t)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if t[i] < '0' || t[i] > '9' {
			return fmt.Errorf("invalid time format %q: must be HH:MM", t)
		}
	}

	hour := int(t[0]-'0')*10 + int(t[1]-'0')
	minute := int(t[3]-'0')*10 + int(t[4]-'0')
	if hour > 23 {
		return fmt.Errorf("invalid time %q: hour must be 0-23", t)
	}
	if minute > 59 {
		return fmt.Errorf("invalid time %q: minute must be 0-59", t)
	}
	return nil
}

// RepoFetchTimeout returns the hard wall-clock deadline for the repository
// fetch stage.
func (c *Config) RepoFetchTimeout() time.Duration {
	return time.Duration(c.RepoFetchTimeoutSecs) * time.Second
}

// DetailDelay returns the pause between repository detail fetches.
func (c *Config) DetailDelay() time.Duration {
	return time.Duration(c.DetailDelaySecs) * time.Second
}
