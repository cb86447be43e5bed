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

package ksg

import (
	"net/url"
	"regexp"
	"strings"
)

// Fingerprint is the deterministic signature find_best_pattern uses to
// match a stored FormPattern against a live page: the normalized host,
// a histogram of input field types present on the form, and a guess at
// the submit control's selector.
type Fingerprint struct {
	Host              string         `json:"host"`
	FieldTypeHistogram map[string]int `json:"field_type_histogram"`
	SubmitSelectorHint string         `json:"submit_selector_hint"`
}

var inputTagRe = regexp.MustCompile(`(?i)<input\b[^>]*>`)
var typeAttrRe = regexp.MustCompile(`(?i)type\s*=\s*["']([a-z0-9_-]+)["']`)
var submitButtonRe = regexp.MustCompile(`(?i)<button\b[^>]*type\s*=\s*["']submit["'][^>]*>`)
var submitInputRe = regexp.MustCompile(`(?i)<input\b[^>]*type\s*=\s*["']submit["'][^>]*>`)

// ComputeFingerprint derives a Fingerprint from a page URL and its HTML.
func ComputeFingerprint(pageURL, html string) Fingerprint {
	fp := Fingerprint{FieldTypeHistogram: map[string]int{}}

	if u, err := url.Parse(pageURL); err == nil {
		fp.Host = strings.ToLower(u.Hostname())
	}

	for _, tag := range inputTagRe.FindAllString(html, -1) {
		m := typeAttrRe.FindStringSubmatch(tag)
		fieldType := "text"
		if len(m) == 2 {
			fieldType = strings.ToLower(m[1])
		}
		fp.FieldTypeHistogram[fieldType]++
	}

	switch {
	case submitButtonRe.MatchString(html):
		fp.SubmitSelectorHint = "button[type='submit']"
	case submitInputRe.MatchString(html):
		fp.SubmitSelectorHint = "input[type='submit']"
	}

	return fp
}

// overlap returns how many field types two histograms share, scaled to the
// spec's 0-2.0 contribution band.
func (fp Fingerprint) overlapScore(other Fingerprint) float64 {
	if len(fp.FieldTypeHistogram) == 0 || len(other.FieldTypeHistogram) == 0 {
		return 0
	}
	shared := 0
	for t := range fp.FieldTypeHistogram {
		if _, ok := other.FieldTypeHistogram[t]; ok {
			shared++
		}
	}
	total := len(fp.FieldTypeHistogram)
	if len(other.FieldTypeHistogram) > total {
		total = len(other.FieldTypeHistogram)
	}
	if total == 0 {
		return 0
	}
	return 2.0 * float64(shared) / float64(total)
}
