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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorHTTPStatusMapsKnownCodes(t *testing.T) {
	require.Equal(t, 404, ErrVaultNotFound(NewVaultID()).HTTPStatus())
	require.Equal(t, 403, ErrForbidden("nope").HTTPStatus())
	require.Equal(t, 401, ErrUnauthorized("nope").HTTPStatus())
	require.Equal(t, 500, ErrInternal("boom").HTTPStatus())
}

func TestErrorUnknownCodeDefaultsTo500(t *testing.T) {
	e := NewError(Code("SOMETHING_NEW"), "whatever")
	require.Equal(t, 500, e.HTTPStatus())
}

func TestErrorWithersDoNotMutateReceiver(t *testing.T) {
	base := NewError(CodeInvalidPush, "bad batch")
	withRemediation := base.WithRemediation("retry")

	require.Empty(t, base.Remediation)
	require.Equal(t, "retry", withRemediation.Remediation)
}

func TestErrorAsUnwrapsThroughJoin(t *testing.T) {
	apiErr := ErrVaultNotFound(NewVaultID())
	wrapped := errors.Join(errors.New("context"), apiErr)

	var target *Error
	require.True(t, errors.As(wrapped, &target))
	require.Equal(t, CodeVaultNotFound, target.Code)
}
