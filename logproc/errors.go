// Copyright 2025 The tricklestat authors
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

package logproc

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every DecodeError via errors.Is
	ErrDecode = errors.New("failed to decode log record")

	// ErrNotGroundTruth is returned when converting an info line
	// of a different type than LeechInfo. It is not a decoding failure,
	// callers use it to filter auxiliary lines.
	ErrNotGroundTruth = errors.New("info record is not a ground truth record")

	ErrNotNodeInfo = errors.New("info record is not a node info record")
)

// DecodeError describes a malformed raw line or a malformed
// composite segment.
type DecodeError struct {
	Reason  string
	Segment string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrDecode, e.Reason)
	if e.Segment != "" {
		msg += fmt.Sprintf(" (segment %q)", e.Segment)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func missingField(name string) error {
	return &DecodeError{Reason: fmt.Sprintf("missing required field %s", name)}
}
