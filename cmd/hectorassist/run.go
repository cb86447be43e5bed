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
	"context"
	"fmt"
)

// RunCmd drives a single request through the Plan-Execute-Adapt loop and
// prints the result, the way an A2A client would surface one turn.
type RunCmd struct {
	Request string `arg:"" help:"The user request to run through the agent loop."`
}

func (c *RunCmd) Run(cli *CLI) error {
	a, err := loadApp(cli.Config)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.engine.Execute(context.Background(), c.Request)

	fmt.Printf("trace:  %s\n", result.TraceID)
	fmt.Printf("status: %s\n", result.Status)
	switch result.Status {
	case "ask_user":
		fmt.Printf("prompt: %s\n", result.AskUserPrompt)
	default:
		fmt.Printf("answer: %s\n", result.Answer)
	}
	if result.AdaptationTries > 0 {
		fmt.Printf("adaptation attempts: %d\n", result.AdaptationTries)
	}
	return nil
}
