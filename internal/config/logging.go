package config

import (
	"fmt"
	"sort"
)

// LogCategories are the category names accepted under logging.categories.
// Each one gets its own file under <root>/.toolbox/logs/ while debug_mode
// is on.
var LogCategories = []string{"boot", "index", "fetch", "install", "store", "shell"}

// LoggingConfig controls the per-category log files. The console logger is
// driven by --verbose instead.
//
//	logging:
//	  level: debug
//	  debug_mode: true
//	  categories:
//	    fetch: false
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`
}

// IsCategoryEnabled reports whether category writes a log file. Nothing is
// written without debug_mode; with it, categories are on unless switched off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	enabled, listed := c.Categories[category]
	return !listed || enabled
}

func (c *LoggingConfig) validate() error {
	if c.Level != "" && !contains(ValidLogLevels, c.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Level, ValidLogLevels)
	}
	var unknown []string
	for name := range c.Categories {
		if !contains(LogCategories, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown logging.categories %v (valid: %v)", unknown, LogCategories)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
