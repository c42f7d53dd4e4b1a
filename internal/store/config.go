package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode     string `yaml:"mode"`
	Symbol   string `yaml:"symbol"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Trading struct {
		MinTradeAmount float64 `yaml:"min_trade_amount"`
		TradeRatio     float64 `yaml:"trade_ratio"`
		FeeRate        float64 `yaml:"fee_rate"`
	} `yaml:"trading"`
	Schedule struct {
		AnalysisIntervalSeconds int    `yaml:"analysis_interval_seconds"`
		CooldownSeconds         int    `yaml:"cooldown_seconds"`
		DailyCron               string `yaml:"daily_cron"`
		WeeklyCron              string `yaml:"weekly_cron"`
		MonthlyCron             string `yaml:"monthly_cron"`
	} `yaml:"schedule"`
	Timeouts struct {
		CollaboratorSeconds int `yaml:"collaborator_seconds"`
	} `yaml:"timeouts"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
		Schema      string  `yaml:"schema"`
	} `yaml:"llm"`
	News struct {
		Enabled      bool `yaml:"enabled"`
		MaxHeadlines int  `yaml:"max_headlines"`
		CacheMinutes int  `yaml:"cache_minutes"`
	} `yaml:"news"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.Trading.MinTradeAmount <= 0 {
		return fmt.Errorf("trading.min_trade_amount must be positive, got %.2f", c.Trading.MinTradeAmount)
	}
	if c.Trading.TradeRatio <= 0 || c.Trading.TradeRatio > 1 {
		return fmt.Errorf("trading.trade_ratio must be in (0,1], got %.4f", c.Trading.TradeRatio)
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate >= 1 {
		return fmt.Errorf("trading.fee_rate must be in [0,1), got %.6f", c.Trading.FeeRate)
	}
	if c.Schedule.AnalysisIntervalSeconds <= 0 {
		return fmt.Errorf("schedule.analysis_interval_seconds must be positive, got %d", c.Schedule.AnalysisIntervalSeconds)
	}
	if c.Schedule.CooldownSeconds <= 0 {
		return fmt.Errorf("schedule.cooldown_seconds must be positive, got %d", c.Schedule.CooldownSeconds)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "KRW-BTC"
	}
	if c.Database.Path == "" {
		c.Database.Path = "trader.db"
	}
	if c.Trading.MinTradeAmount == 0 {
		c.Trading.MinTradeAmount = 5000
	}
	if c.Trading.TradeRatio == 0 {
		c.Trading.TradeRatio = 0.95
	}
	if c.Trading.FeeRate == 0 {
		c.Trading.FeeRate = 0.0005
	}
	if c.Schedule.AnalysisIntervalSeconds == 0 {
		c.Schedule.AnalysisIntervalSeconds = 300
	}
	if c.Schedule.CooldownSeconds == 0 {
		c.Schedule.CooldownSeconds = 60
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 * * *"
	}
	if c.Schedule.WeeklyCron == "" {
		c.Schedule.WeeklyCron = "0 0 * * 1"
	}
	if c.Schedule.MonthlyCron == "" {
		c.Schedule.MonthlyCron = "0 0 1 * *"
	}
	if c.Timeouts.CollaboratorSeconds == 0 {
		c.Timeouts.CollaboratorSeconds = 30
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 10
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 30
	}
}
