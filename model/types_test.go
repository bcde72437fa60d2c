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

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrincipalHasScopeAdminSubsumesReadAndWrite(t *testing.T) {
	p := Principal{Scopes: []Scope{ScopeAdmin}}
	require.True(t, p.HasScope(ScopeRead))
	require.True(t, p.HasScope(ScopeWrite))
	require.True(t, p.HasScope(ScopeAdmin))
}

func TestPrincipalHasScopeReadAndWriteAreSiblings(t *testing.T) {
	p := Principal{Scopes: []Scope{ScopeRead}}
	require.True(t, p.HasScope(ScopeRead))
	require.False(t, p.HasScope(ScopeWrite))
	require.False(t, p.HasScope(ScopeAdmin))
}

func TestPrincipalHasScopeEmptyGrantsNothing(t *testing.T) {
	p := Principal{}
	require.False(t, p.HasScope(ScopeRead))
}

func TestOpTypeValid(t *testing.T) {
	require.True(t, OpMarkdownUpdate.Valid())
	require.True(t, OpBlobRef.Valid())
	require.False(t, OpType("not_a_real_op").Valid())
}
