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

package procedure

import (
	"context"
	"strings"
)

// FillFunc fills a single form field; it is the web.fill primitive the
// selector-fallback logic retries with alternate selectors.
type FillFunc func(ctx context.Context, url, selector, text string) (map[string]any, error)

// fallbackSelectorsFor returns the fixed fallback selector table for a
// named field, tried in order until one succeeds (spec §4.4).
func fallbackSelectorsFor(field string) []string {
	switch strings.ToLower(field) {
	case "username", "email", "user":
		return []string{
			"input[type='email']",
			"input[type='text']",
			"#email",
			"#username",
			"input[name='email']",
			"input[name='username']",
		}
	case "password", "pass", "pwd":
		return []string{"input[type='password']", "#password", "input[name='password']"}
	case "card", "cardnumber", "cc", "cc_number", "creditcard":
		return []string{
			"input[autocomplete='cc-number']",
			"input[name*='card']",
			"#card",
			"input[type='tel']",
		}
	case "expiry", "exp", "expdate", "expiration":
		return []string{"input[autocomplete='cc-exp']", "input[name*='exp']", "#expiry"}
	case "cvc", "cvv", "securitycode", "code":
		return []string{
			"input[autocomplete='cc-csc']",
			"input[name*='cvc']",
			"input[name*='cvv']",
			"#cvc",
		}
	default:
		return nil
	}
}

// FillMultiWithFallback fills each field's selector; on failure it walks
// fallbackSelectorsFor(field) until one succeeds. The first successful
// fallback is recorded as "fallback_selector" on that field's result;
// "attempted_selectors" lists every selector that was tried and failed.
func FillMultiWithFallback(ctx context.Context, fill FillFunc, url string, selectors map[string]string, values map[string]string) []map[string]any {
	results := make([]map[string]any, 0, len(selectors))
	for field, sel := range selectors {
		val := values[field]
		res, err := fill(ctx, url, sel, val)
		if err == nil {
			res["field"] = field
			results = append(results, res)
			continue
		}

		attempted := []string{sel}
		single := map[string]any{"status": "error", "error": err.Error(), "selector": sel}
		for _, fallbackSel := range fallbackSelectorsFor(field) {
			if contains(attempted, fallbackSel) {
				continue
			}
			fr, ferr := fill(ctx, url, fallbackSel, val)
			if ferr == nil {
				fr["fallback_selector"] = fallbackSel
				single = fr
				break
			}
			attempted = append(attempted, fallbackSel)
		}
		if _, ok := single["attempted_selectors"]; !ok {
			single["attempted_selectors"] = attempted
		}
		single["field"] = field
		results = append(results, single)
	}
	return results
}

// WinningSelector scans FillMultiWithFallback's output for the first
// field that succeeded via a fallback selector, for self-healing
// write-back onto the stored Step (spec §4.4).
func WinningSelector(results []map[string]any) (field, selector string, ok bool) {
	for _, r := range results {
		if sel, has := r["fallback_selector"].(string); has {
			f, _ := r["field"].(string)
			return f, sel, true
		}
	}
	return "", "", false
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
