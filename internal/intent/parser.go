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

// Package intent implements the deterministic parser (spec §4.5 step 2):
// rule-based intent classification and field extraction used to skip the
// LLM call for obvious requests.
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is one of the deterministic classification outcomes.
type Kind string

const (
	KindEvent     Kind = "event"
	KindTask      Kind = "task"
	KindQuery     Kind = "query"
	KindProcedure Kind = "procedure"
)

var (
	eventKeywords = map[string]struct{}{
		"remind": {}, "reminder": {}, "schedule": {}, "event": {}, "meet": {}, "meeting": {},
		"appointment": {}, "call": {}, "calendar": {}, "alarm": {}, "notify": {}, "notification": {},
	}
	taskKeywords = map[string]struct{}{
		"todo": {}, "task": {}, "do": {}, "complete": {}, "finish": {}, "fix": {}, "implement": {},
		"add": {}, "create": {}, "make": {}, "build": {}, "write": {}, "update": {}, "delete": {},
		"remove": {}, "install": {}, "setup": {}, "configure": {},
	}
	queryKeywords = map[string]struct{}{
		"what": {}, "when": {}, "where": {}, "who": {}, "how": {}, "why": {}, "show": {}, "list": {},
		"find": {}, "search": {}, "get": {}, "tell": {}, "explain": {}, "describe": {},
	}
	procedureKeywords = map[string]struct{}{
		"procedure": {}, "workflow": {}, "process": {}, "steps": {}, "run": {}, "execute": {},
		"perform": {}, "automate": {}, "script": {},
	}
	questionStarters = map[string]struct{}{
		"what": {}, "when": {}, "where": {}, "who": {}, "how": {}, "why": {},
	}
)

// InferKind classifies instruction into one of event/query/procedure/task
// without calling the LLM, ported from infer_concept_kind's exact ordered
// checks: question-starter, then show/list/find prefix, then keyword sets
// in event -> procedure -> task order (task is the default).
func InferKind(instruction string) Kind {
	text := strings.TrimSpace(strings.ToLower(instruction))
	fields := strings.Fields(text)
	first := ""
	if len(fields) > 0 {
		first = fields[0]
	}
	if _, ok := questionStarters[first]; ok {
		return KindQuery
	}
	for _, kw := range []string{"show", "list", "find", "search", "get"} {
		if strings.HasPrefix(text, kw) {
			return KindQuery
		}
	}
	if containsAny(text, eventKeywords) {
		return KindEvent
	}
	if containsAny(text, procedureKeywords) {
		return KindProcedure
	}
	if containsAny(text, taskKeywords) {
		return KindTask
	}
	return KindTask
}

func containsAny(text string, keywords map[string]struct{}) bool {
	for kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var (
	atMidnightRe  = regexp.MustCompile(`(?i)\bat\s+midnight\b`)
	atNoonRe      = regexp.MustCompile(`(?i)\bat\s+noon\b`)
	atTimeRe      = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	inDurationRe  = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(minute|hour|min|hr)s?\b`)
	stripTimeRe   = regexp.MustCompile(`(?i)\bat\s+(midnight|noon|\d{1,2}(:\d{2})?\s*(am|pm)?)`)
	stripInRe     = regexp.MustCompile(`(?i)\bin\s+\d+\s+(minute|hour|min|hr)s?\b`)
	stripPrefixRe = regexp.MustCompile(`(?i)\b(remind me to|remind me|please|can you|could you)\b`)
	stripVerbRe   = regexp.MustCompile(`(?i)\b(schedule|set|create)\s+(a\s+)?(reminder|event|meeting)\s*(to|for)?\b`)
)

// ExtractEventFields pulls {time, action} from an event-kind instruction,
// a direct port of extract_event_fields's regex cascade.
func ExtractEventFields(instruction string) map[string]string {
	timeValue := "unspecified"

	switch {
	case atMidnightRe.MatchString(instruction):
		timeValue = "00:00"
	case atNoonRe.MatchString(instruction):
		timeValue = "12:00"
	default:
		if m := atTimeRe.FindStringSubmatch(instruction); m != nil {
			hour, _ := strconv.Atoi(m[1])
			minute := 0
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			ampm := strings.ToLower(m[3])
			if ampm == "pm" && hour < 12 {
				hour += 12
			} else if ampm == "am" && hour == 12 {
				hour = 0
			}
			timeValue = fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}

	if timeValue == "unspecified" {
		if m := inDurationRe.FindStringSubmatch(instruction); m != nil {
			amount := m[1]
			unit := strings.ToLower(m[2])
			if unit == "hour" || unit == "hr" {
				timeValue = "+" + amount + "h"
			} else {
				timeValue = "+" + amount + "m"
			}
		}
	}

	text := stripTimeRe.ReplaceAllString(instruction, "")
	text = stripInRe.ReplaceAllString(text, "")
	text = stripPrefixRe.ReplaceAllString(text, "")
	text = stripVerbRe.ReplaceAllString(text, "")
	action := strings.Trim(text, " ,.")
	if action == "" {
		action = strings.TrimSpace(instruction)
	}

	return map[string]string{"time": timeValue, "action": action}
}

var (
	taskStripPrefixRe = regexp.MustCompile(`(?i)\b(please|can you|could you|i need to|i want to)\b`)
	taskStripWordsRe  = regexp.MustCompile(`(?i)\b(urgent|asap|important|critical|high priority|low priority)\b`)
)

// ExtractTaskFields pulls {title, priority} from a task-kind instruction.
func ExtractTaskFields(instruction string) map[string]string {
	text := strings.ToLower(instruction)

	priority := "normal"
	switch {
	case containsAnyPhrase(text, "urgent", "asap", "important", "critical", "high priority"):
		priority = "high"
	case containsAnyPhrase(text, "low priority", "whenever", "eventually", "someday"):
		priority = "low"
	}

	title := taskStripPrefixRe.ReplaceAllString(instruction, "")
	title = taskStripWordsRe.ReplaceAllString(title, "")
	title = strings.Trim(title, " ,.")
	if title == "" {
		title = strings.TrimSpace(instruction)
	}

	return map[string]string{"title": title, "priority": priority}
}

func containsAnyPhrase(text string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

var querySubjectRe = regexp.MustCompile(`(?i)^(what|when|where|who|how|why|list|show|find|search)\s*((is|are|do|does|did|was|were|my|the)\s*)*`)

// ExtractQueryFields pulls {query_type, subject} from a query-kind
// instruction.
func ExtractQueryFields(instruction string) map[string]string {
	text := strings.ToLower(strings.TrimSpace(instruction))

	queryType := "what"
	for _, qtype := range []string{"what", "when", "where", "who", "how", "why"} {
		if strings.HasPrefix(text, qtype) {
			queryType = qtype
			break
		}
	}
	if containsAnyPhrase(text, "list", "show", "find", "search") {
		queryType = "list"
	}

	subject := querySubjectRe.ReplaceAllString(instruction, "")
	subject = strings.Trim(subject, " ?.")
	if subject == "" {
		subject = strings.TrimSpace(instruction)
	}

	return map[string]string{"query_type": queryType, "subject": subject}
}

// QuickParse classifies instruction and extracts its fields in one call.
func QuickParse(instruction string) (Kind, map[string]string) {
	kind := InferKind(instruction)
	switch kind {
	case KindEvent:
		return kind, ExtractEventFields(instruction)
	case KindTask:
		return kind, ExtractTaskFields(instruction)
	case KindQuery:
		return kind, ExtractQueryFields(instruction)
	default:
		return kind, map[string]string{"description": instruction}
	}
}

var (
	obviousEventTimeRe = regexp.MustCompile(`(?i)\bat\s+\d|in\s+\d+\s+(minute|hour)|midnight|noon`)
)

// IsObviousIntent reports whether kind's classification is confident
// enough to skip the LLM (spec §4.5 step 2's skip_llm_for_obvious gate).
func IsObviousIntent(instruction string, kind Kind) bool {
	text := strings.ToLower(instruction)

	switch kind {
	case KindEvent:
		hasTime := obviousEventTimeRe.MatchString(text)
		hasEventWord := containsAnyPhrase(text, "remind", "schedule", "meeting", "appointment", "alarm")
		return hasTime && hasEventWord
	case KindQuery:
		fields := strings.Fields(strings.TrimSpace(text))
		if len(fields) == 0 {
			return false
		}
		_, ok := questionStarters[fields[0]]
		return ok
	case KindTask:
		fields := strings.Fields(strings.TrimSpace(text))
		if len(fields) > 2 {
			fields = fields[:2]
		}
		actionVerbs := map[string]struct{}{
			"create": {}, "make": {}, "add": {}, "fix": {}, "update": {}, "delete": {}, "remove": {}, "install": {}, "build": {},
		}
		for _, w := range fields {
			if _, ok := actionVerbs[w]; ok {
				return true
			}
		}
		return false
	case KindProcedure:
		return containsAnyPhrase(text, "procedure", "workflow", "run the", "execute the")
	default:
		return false
	}
}

// ConfidenceScore scores the classification 0.0-1.0: a 0.5 base, up to
// +0.3 for keyword density, +0.2 if IsObviousIntent holds.
func ConfidenceScore(instruction string, kind Kind) float64 {
	text := strings.ToLower(instruction)
	score := 0.5

	var keywordSet map[string]struct{}
	switch kind {
	case KindEvent:
		keywordSet = eventKeywords
	case KindTask:
		keywordSet = taskKeywords
	case KindQuery:
		keywordSet = queryKeywords
	case KindProcedure:
		keywordSet = procedureKeywords
	}
	if keywordSet != nil {
		matches := 0
		for kw := range keywordSet {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		bonus := float64(matches) * 0.1
		if bonus > 0.3 {
			bonus = 0.3
		}
		score += bonus
	}

	if IsObviousIntent(instruction, kind) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
