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

// Package model holds the value types shared across every Obsync server
// component: vaults, devices, the append-only operation log, cursors, blobs
// and their chunks, key envelopes, the resolved caller identity, and the
// error envelope returned on the wire.
package model
