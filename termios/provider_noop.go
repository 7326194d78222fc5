//go:build (!linux && !windows) || ecos || nucleus || xapi

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

package termios

import "github.com/nestybox/sysbox-osal/domain"

// Consoleless targets: requests are accepted and ignored.
type noopProvider struct{}

func newDefaultProvider() domain.TermProviderIface {
	return &noopProvider{}
}

func newTerminalProvider(uintptr) domain.TermProviderIface {
	return &noopProvider{}
}

func (np *noopProvider) SetEcho(bool) error     { return nil }
func (np *noopProvider) SetLineMode(bool) error { return nil }
func (np *noopProvider) Reboot() error          { return nil }
