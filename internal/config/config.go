package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	DriveID           string `yaml:"drive_id"            json:"drive_id"`
	EmployeesFolderID string `yaml:"employees_folder_id" json:"employees_folder_id"`
	DBPath            string `yaml:"db_path"             json:"-"`
	HTTPAddr          string `yaml:"http_addr"           json:"-"`
	Schedule          string `yaml:"schedule"            json:"schedule"`
	TaxonomyPath      string `yaml:"taxonomy_path"       json:"-"`
	Worker            Worker `yaml:"worker"              json:"worker"`
	LogLevel          string `yaml:"log_level"           json:"-"`
}

// Worker holds the background loop tuning knobs. Intervals are in seconds.
type Worker struct {
	AutoScan         bool `yaml:"auto_scan"          json:"auto_scan"`
	PollIntervalSecs int  `yaml:"poll_interval_secs" json:"poll_interval_secs"`
	ScanIntervalSecs int  `yaml:"scan_interval_secs" json:"scan_interval_secs"`
	BatchSize        int  `yaml:"batch_size"         json:"batch_size"`
	MaxWorkers       int  `yaml:"max_workers"        json:"max_workers"`
	EmployeePauseMs  int  `yaml:"employee_pause_ms"  json:"employee_pause_ms"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "/data/docpadron.db"
	}
	if c.EmployeesFolderID == "" {
		c.EmployeesFolderID = "."
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Worker.PollIntervalSecs == 0 {
		c.Worker.PollIntervalSecs = 30
	}
	if c.Worker.ScanIntervalSecs == 0 {
		c.Worker.ScanIntervalSecs = 300
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 5
	}
	if c.Worker.MaxWorkers == 0 {
		c.Worker.MaxWorkers = 5
	}
	if c.Worker.EmployeePauseMs == 0 {
		c.Worker.EmployeePauseMs = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the server
// can start without a mounted config file (useful for bare Docker runs).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
