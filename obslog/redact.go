/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package obslog

import "net/url"

// redactedParams never appear in a log line, only in the request itself.
var redactedParams = []string{"token"}

// RedactQuery returns rawQuery with every sensitive parameter's value
// replaced by "REDACTED". The legacy ?token= auth fallback must never
// reach a log sink verbatim.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "REDACTED"
	}
	redacted := false
	for _, key := range redactedParams {
		if values.Has(key) {
			values.Set(key, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return rawQuery
	}
	return values.Encode()
}
