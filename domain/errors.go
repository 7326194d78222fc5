//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package domain

import (
	"github.com/pkg/errors"
)

//
// ErrFailure is the single failure sentinel of the layer. Every call that
// fails, whether because of an invalid argument or because the platform
// primitive reported an error, returns an error matching it through
// errors.Is(). Callers are not expected to tell both situations apart.
//
var ErrFailure = errors.New("ifxos: operation failed")

// ErrNotSupported is reported by entry points whose capability group is not
// compiled into the current build. It wraps ErrFailure.
var ErrNotSupported = errors.Wrap(ErrFailure, "capability not supported")

// Byte-count calls return CountError alongside a non-nil error.
const CountError = -1

// Failure builds an ErrFailure-matching error for operation 'op'. The cause,
// if any, is only carried as text.
func Failure(op string, cause error) error {
	if cause == nil {
		return errors.Wrap(ErrFailure, op)
	}

	return errors.Wrapf(ErrFailure, "%s: %v", op, cause)
}

// Unsupported builds an ErrNotSupported-matching error for operation 'op'.
func Unsupported(op string) error {
	return errors.Wrap(ErrNotSupported, op)
}
