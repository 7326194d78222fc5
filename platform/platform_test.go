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

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nestybox/sysbox-osal/domain"
)

func TestCurrent(t *testing.T) {
	assert.NotEqual(t, domain.PlatformUnknown, Current)
	assert.NotContains(t, Current.String(), "platform(")
}

func TestFeatures_Dependencies(t *testing.T) {
	f := Features()

	if !f.DeviceAccess {
		assert.False(t, f.DeviceSelect, "device select without device access")
	}
	if !f.Socket {
		assert.False(t, f.SocketShutdown, "socket shutdown without sockets")
		assert.False(t, f.IPv6, "ipv6 without sockets")
	}
}

func TestFeatures_Disabled(t *testing.T) {
	saved := disabled
	defer func() { disabled = saved }()

	tests := []struct {
		name  string
		off   domain.Features
		check func(t *testing.T, f domain.Features)
	}{
		{
			name: "no device",
			off:  domain.Features{DeviceAccess: true},
			check: func(t *testing.T, f domain.Features) {
				assert.False(t, f.DeviceAccess)
				assert.False(t, f.DeviceSelect)
			},
		},
		{
			name: "no socket",
			off:  domain.Features{Socket: true},
			check: func(t *testing.T, f domain.Features) {
				assert.False(t, f.Socket)
				assert.False(t, f.SocketShutdown)
				assert.False(t, f.IPv6)
			},
		},
		{
			name: "no ipv6",
			off:  domain.Features{IPv6: true},
			check: func(t *testing.T, f domain.Features) {
				assert.False(t, f.IPv6)
				assert.Equal(t, defaultFeatures.Socket, f.Socket)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disabled = tt.off
			tt.check(t, Features())
		})
	}
}
