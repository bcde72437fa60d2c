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

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactQueryHidesTokenValue(t *testing.T) {
	redacted := RedactQuery("deviceId=abc&token=super-secret&since=10")
	require.NotContains(t, redacted, "super-secret")
	require.Contains(t, redacted, "REDACTED")
	require.Contains(t, redacted, "deviceId=abc")
}

func TestRedactQueryLeavesQueryWithoutTokenAlone(t *testing.T) {
	redacted := RedactQuery("deviceId=abc&since=10")
	require.False(t, strings.Contains(redacted, "REDACTED"))
}

func TestRedactQueryFallsBackOnParseError(t *testing.T) {
	redacted := RedactQuery("%zz")
	require.Equal(t, "REDACTED", redacted)
}
