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

package main

import (
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/config"
)

// ValidateCmd loads a config file, applies defaults, and validates it
// without starting anything. Useful in CI before a config change ships.
type ValidateCmd struct {
	ConfigPath string `arg:"" name:"config" help:"Configuration file path." default:"config.yaml"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return fmt.Errorf("%s: %w", c.ConfigPath, err)
	}
	fmt.Printf("%s: valid\n", c.ConfigPath)
	fmt.Printf("  databases:     %d\n", len(cfg.Databases))
	fmt.Printf("  vector_stores: %d\n", len(cfg.VectorStores))
	fmt.Printf("  scheduler:     %d time rule(s)\n", len(cfg.Scheduler.TimeRules))
	return nil
}
