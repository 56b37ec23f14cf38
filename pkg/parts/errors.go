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

package parts

import (
	"errors"
	"fmt"
)

// Stage identifies the step of an unpack or pack that failed.
type Stage int

const (
	StageLoad Stage = iota + 1
	StageDirectorySetup
	StageInfoWrite
	StageInfoRead
	StageDataWrite
	StageDataRead
	StageRecorderWrite
	StageRecorderRead
	StageSaveWrite
)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "loading prospect"
	case StageDirectorySetup:
		return "setting up parts directory"
	case StageInfoWrite:
		return "writing prospect info"
	case StageInfoRead:
		return "reading prospect info"
	case StageDataWrite:
		return "writing prospect data"
	case StageDataRead:
		return "reading prospect data"
	case StageRecorderWrite:
		return "writing recorder"
	case StageRecorderRead:
		return "reading recorder"
	case StageSaveWrite:
		return "writing prospect"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var (
	// ErrMissingInfo is returned when ProspectInfo.json is absent or is not
	// a JSON object.
	ErrMissingInfo = errors.New("missing or invalid prospect info")

	// ErrMalformedRecorderFile is returned when a recorder file has no
	// "Name" key or is not valid JSON.
	ErrMalformedRecorderFile = errors.New("malformed recorder file")

	// ErrNameCollision is returned when every collision suffix of a
	// recorder file name is taken.
	ErrNameCollision = errors.New("no free recorder file name")
)

// Error reports the stage at which an unpack or pack stopped. Output written
// before the failure is left in place.
type Error struct {
	Stage Stage
	// Path is the file or directory involved, if any.
	Path string
	// Index is the recorder's position, or -1.
	Index int
	Err   error
}

func (e *Error) Error() string {
	msg := e.Stage.String()

	if e.Index >= 0 {
		msg = fmt.Sprintf("%s %d", msg, e.Index)
	}

	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}

	return fmt.Sprintf("%s: %s", msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, path string, err error) *Error {
	return &Error{Stage: stage, Path: path, Index: -1, Err: err}
}

func recorderError(stage Stage, index int, path string, err error) *Error {
	return &Error{Stage: stage, Path: path, Index: index, Err: err}
}
