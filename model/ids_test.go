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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVaultIDRoundTripsThroughJSON(t *testing.T) {
	id := NewVaultID()

	encoded, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded VaultID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, id, decoded)
}

func TestVaultIDScanAcceptsStringAndBytes(t *testing.T) {
	id := NewVaultID()

	var fromString VaultID
	require.NoError(t, fromString.Scan(id.String()))
	require.Equal(t, id, fromString)

	var fromBytes VaultID
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	require.Equal(t, id, fromBytes)
}

func TestVaultIDScanNilYieldsZeroValue(t *testing.T) {
	var id VaultID
	require.NoError(t, id.Scan(nil))
	require.True(t, id.IsZero())
}

func TestParseVaultIDRejectsGarbage(t *testing.T) {
	_, err := ParseVaultID("not-a-uuid")
	require.Error(t, err)
}

func TestDeviceIDAndVaultIDAreDistinctTypes(t *testing.T) {
	vaultID := NewVaultID()
	deviceID := DeviceID(vaultID) // explicit conversion compiles; implicit assignment would not
	require.Equal(t, vaultID.String(), deviceID.String())
}
