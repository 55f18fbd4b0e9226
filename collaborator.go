// Copyright 2026 gigatron-asm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

// Collaborator is the external emulator/loader this assembler can be
// embedded into. Only the interface lives here; it is invoked where
// reserved equates take effect and where gprintf rendering and ROM
// verification need live machine state.
type Collaborator interface {
	// DisableUploads signals the loader to skip uploading this module,
	// driven by the _disableUpload_ reserved equate.
	DisableUploads(disable bool)

	// SetSingleStepWatchAddress, SetCpuUsageAddressA/B are editor
	// integration hints driven by their matching reserved equates.
	SetSingleStepWatchAddress(address uint16)
	SetCpuUsageAddressA(address uint16)
	SetCpuUsageAddressB(address uint16)

	// RAM reads a live byte during gprintf rendering.
	RAM(address uint16) uint8

	// ROM reads a native instruction's (opcode, operand) byte pair at a
	// ROM word address, for the ROMMismatch check. ok is false when no
	// ROM image is attached, in which case the check is skipped.
	ROM(wordAddress uint16, lane int) (value uint8, ok bool)
}

// nullCollaborator is the default no-op Collaborator, used by
// STAND_ALONE-style invocations (the CLI entry point) that have no
// attached emulator.
type nullCollaborator struct{}

func (nullCollaborator) DisableUploads(bool)             {}
func (nullCollaborator) SetSingleStepWatchAddress(uint16) {}
func (nullCollaborator) SetCpuUsageAddressA(uint16)      {}
func (nullCollaborator) SetCpuUsageAddressB(uint16)      {}
func (nullCollaborator) RAM(uint16) uint8                { return 0 }
func (nullCollaborator) ROM(uint16, int) (uint8, bool)   { return 0, false }
