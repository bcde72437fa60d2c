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
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// VaultID, DeviceID and FileID are opaque 128-bit identifiers in their
// canonical textual (RFC 4122) form. They are distinct Go types so a
// DeviceID can never be passed where a VaultID is expected by mistake.
type (
	VaultID  uuid.UUID
	DeviceID uuid.UUID
	FileID   uuid.UUID
)

// NewVaultID, NewDeviceID and NewFileID mint fresh random identifiers.
func NewVaultID() VaultID   { return VaultID(uuid.New()) }
func NewDeviceID() DeviceID { return DeviceID(uuid.New()) }
func NewFileID() FileID     { return FileID(uuid.New()) }

func (id VaultID) String() string  { return uuid.UUID(id).String() }
func (id DeviceID) String() string { return uuid.UUID(id).String() }
func (id FileID) String() string   { return uuid.UUID(id).String() }

func (id VaultID) IsZero() bool  { return id == VaultID{} }
func (id DeviceID) IsZero() bool { return id == DeviceID{} }
func (id FileID) IsZero() bool   { return id == FileID{} }

// ParseVaultID parses the canonical textual form produced by String.
func ParseVaultID(s string) (VaultID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return VaultID{}, fmt.Errorf("invalid vault id %q: %w", s, err)
	}
	return VaultID(u), nil
}

// ParseDeviceID parses the canonical textual form produced by String.
func ParseDeviceID(s string) (DeviceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DeviceID{}, fmt.Errorf("invalid device id %q: %w", s, err)
	}
	return DeviceID(u), nil
}

// ParseFileID parses the canonical textual form produced by String.
func ParseFileID(s string) (FileID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FileID{}, fmt.Errorf("invalid file id %q: %w", s, err)
	}
	return FileID(u), nil
}

// The Value/Scan pairs let database/sql pass these ids straight through to
// a UUID or TEXT column without every call site marshaling by hand.

func (id VaultID) Value() (driver.Value, error)  { return id.String(), nil }
func (id DeviceID) Value() (driver.Value, error) { return id.String(), nil }
func (id FileID) Value() (driver.Value, error)   { return id.String(), nil }

func (id *VaultID) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = VaultID(u)
	return nil
}

func (id *DeviceID) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = DeviceID(u)
	return nil
}

func (id *FileID) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return err
	}
	*id = FileID(u)
	return nil
}

func scanUUID(src interface{}) (uuid.UUID, error) {
	switch v := src.(type) {
	case nil:
		return uuid.UUID{}, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.ParseBytes(v)
	default:
		return uuid.UUID{}, fmt.Errorf("unsupported scan type %T for uuid", src)
	}
}

// MarshalJSON/UnmarshalJSON render ids as plain quoted strings, matching the
// "opaque 128-bit values in canonical textual form" wire contract.

func (id VaultID) MarshalJSON() ([]byte, error)  { return marshalIDJSON(id.String()) }
func (id DeviceID) MarshalJSON() ([]byte, error) { return marshalIDJSON(id.String()) }
func (id FileID) MarshalJSON() ([]byte, error)   { return marshalIDJSON(id.String()) }

func marshalIDJSON(s string) ([]byte, error) {
	return []byte(`"` + s + `"`), nil
}

func (id *VaultID) UnmarshalJSON(b []byte) error {
	s, err := unquoteIDJSON(b)
	if err != nil {
		return err
	}
	if s == "" {
		*id = VaultID{}
		return nil
	}
	parsed, err := ParseVaultID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DeviceID) UnmarshalJSON(b []byte) error {
	s, err := unquoteIDJSON(b)
	if err != nil {
		return err
	}
	if s == "" {
		*id = DeviceID{}
		return nil
	}
	parsed, err := ParseDeviceID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *FileID) UnmarshalJSON(b []byte) error {
	s, err := unquoteIDJSON(b)
	if err != nil {
		return err
	}
	if s == "" {
		*id = FileID{}
		return nil
	}
	parsed, err := ParseFileID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func unquoteIDJSON(b []byte) (string, error) {
	if string(b) == "null" {
		return "", nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return "", fmt.Errorf("invalid id literal: %s", b)
	}
	return string(b[1 : len(b)-1]), nil
}
