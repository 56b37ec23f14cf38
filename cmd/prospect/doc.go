// prospect-go: Icarus prospect save edit suite
// Copyright (C) 2018  Yishen Miao
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

/*
prospect splits an Icarus prospect save into a directory of editable JSON
parts and packs such a directory back into a save.

The unpack action decodes the prospect and writes ProspectInfo.json, the
remaining top-level properties to ProspectData.json, and one file per state
recorder to the Recorders directory. The pack action reads the parts and
writes a new save. The verify action reports whether a parts directory still
encodes to the same property stream as a save.

Recorder files are prefixed with their position in the save, or with their
actor ID when --actor-id is given. Pack orders recorders by that prefix, so
renaming a file moves its recorder.

Usage:

	prospect [flags] unpack <prospect.json> <partsDir>
	prospect [flags] pack <partsDir> <prospect.json>
	prospect [flags] verify <prospect.json> <partsDir>

Settings may also come from a YAML file named by --config or by the
PROSPECT_CONFIG environment variable. Flags override the file.
*/
package main
