// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/scheduler"
)

// TimeRuleConfig is the YAML-facing form of scheduler.TimeRule.
type TimeRuleConfig struct {
	Title    string         `yaml:"title"`
	Notes    string         `yaml:"notes,omitempty"`
	Hour     int            `yaml:"hour"`
	Minute   int            `yaml:"minute"`
	Priority int            `yaml:"priority,omitempty"`
	Labels   []string       `yaml:"labels,omitempty"`
	DAG      map[string]any `yaml:"dag,omitempty"`
}

// SchedulerConfig lists the Scheduler's time rules.
type SchedulerConfig struct {
	TimeRules []TimeRuleConfig `yaml:"time_rules,omitempty"`
}

// Validate checks every configured time rule's hour/minute range.
func (c *SchedulerConfig) Validate() error {
	for i, r := range c.TimeRules {
		if r.Title == "" {
			return fmt.Errorf("time_rules[%d]: title is required", i)
		}
		if r.Hour < 0 || r.Hour > 23 {
			return fmt.Errorf("time_rules[%d] %q: hour must be between 0 and 23", i, r.Title)
		}
		if r.Minute < 0 || r.Minute > 59 {
			return fmt.Errorf("time_rules[%d] %q: minute must be between 0 and 59", i, r.Title)
		}
	}
	return nil
}

// ToTimeRules converts the configured rules to scheduler.TimeRule values.
func (c SchedulerConfig) ToTimeRules() []scheduler.TimeRule {
	rules := make([]scheduler.TimeRule, 0, len(c.TimeRules))
	for _, r := range c.TimeRules {
		rules = append(rules, scheduler.TimeRule{
			Title:    r.Title,
			Notes:    r.Notes,
			Hour:     r.Hour,
			Minute:   r.Minute,
			Priority: r.Priority,
			Labels:   r.Labels,
			DAG:      r.DAG,
		})
	}
	return rules
}
