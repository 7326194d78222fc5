//go:build linux

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

package process

import (
	"bytes"
	"testing"
)

func TestProcess_CopyFromUser(t *testing.T) {

	if !Supported() {
		t.Skip("process_vm_readv() not available")
	}

	p := Self()

	user := []byte("user space payload")
	drv := make([]byte, len(user))

	n, err := p.CopyFromUser(drv, user)
	if err != nil {
		t.Fatalf("CopyFromUser() failed: %v", err)
	}
	if n != len(user) || !bytes.Equal(drv, user) {
		t.Fatalf("CopyFromUser() copied %d bytes %q; want %d bytes %q", n, drv, len(user), user)
	}
}

func TestProcess_CopyToUser(t *testing.T) {

	if !Supported() {
		t.Skip("process_vm_readv() not available")
	}

	p := Self()

	drv := []byte("driver reply")
	user := make([]byte, 32)

	n, err := p.CopyToUser(user[:len(drv)], drv)
	if err != nil {
		t.Fatalf("CopyToUser() failed: %v", err)
	}
	if n != len(drv) || !bytes.Equal(user[:n], drv) {
		t.Fatalf("CopyToUser() copied %d bytes %q; want %q", n, user[:n], drv)
	}
}

func TestProcess_BadAddress(t *testing.T) {

	if !Supported() {
		t.Skip("process_vm_readv() not available")
	}

	p := Self()

	// The zero page is never mapped.
	if _, err := p.ReadMem(make([]byte, 8), 0x10); err == nil {
		t.Fatalf("ReadMem() at an unmapped address succeeded")
	}
	if _, err := p.WriteMem(0x10, []byte("x")); err == nil {
		t.Fatalf("WriteMem() at an unmapped address succeeded")
	}
}

func TestProcess_Empty(t *testing.T) {

	p := NewProcess(1)

	if n, err := p.CopyFromUser(nil, []byte("x")); n != 0 || err != nil {
		t.Fatalf("CopyFromUser() with empty destination = %d, %v", n, err)
	}
	if n, err := p.CopyToUser([]byte("x"), nil); n != 0 || err != nil {
		t.Fatalf("CopyToUser() with empty source = %d, %v", n, err)
	}
	if p.Pid() != 1 {
		t.Fatalf("Pid() = %d; want 1", p.Pid())
	}
}
