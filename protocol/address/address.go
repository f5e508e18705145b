// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

// Package address defines ProtocolAddress, the (name, device) pair every
// store and engine operation is keyed on.
package address

import "fmt"

// Address identifies one device belonging to a principal. Equality is
// structural; there is no defined ordering between addresses.
type Address struct {
	name     string
	deviceID uint32
}

// New builds an Address for name's deviceID-th device.
func New(name string, deviceID uint32) Address {
	return Address{name: name, deviceID: deviceID}
}

// Name returns the principal name component.
func (a Address) Name() string {
	return a.name
}

// DeviceID returns the device component.
func (a Address) DeviceID() uint32 {
	return a.deviceID
}

// Equal reports whether a and other identify the same device.
func (a Address) Equal(other Address) bool {
	return a.name == other.name && a.deviceID == other.deviceID
}

// String renders the address as "name.deviceID", the canonical form used
// in logs and store keys.
func (a Address) String() string {
	return fmt.Sprintf("%s.%d", a.name, a.deviceID)
}
