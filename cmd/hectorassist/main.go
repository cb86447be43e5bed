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

// Command hectorassist is the CLI for the personal assistant agent.
//
// Usage:
//
//	hectorassist run --config config.yaml "remind me to call mom at 5pm"
//	hectorassist serve --config config.yaml
//	hectorassist validate config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/hectorassist/internal/logging"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run one request through the agent loop and print the result."`
	Serve    ServeCmd    `cmd:"" help:"Run the scheduler and task queue as a long-lived process."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple" enum:"simple,verbose"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("hectorassist"),
		kong.Description("Personal assistant agent: semantic memory, plan-execute-adapt loop, procedure engine."),
		kong.UsageOnError(),
	)

	logging.Init(logging.ParseLevel(cli.LogLevel), os.Stderr, cli.LogFormat)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
