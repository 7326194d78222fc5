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

//
// Package sysio holds the device I/O backends. Two flavors are provided:
//
// 1. IODeviceFileService: device nodes owned by the kernel and accessed
//    through regular file descriptors. Used on linux.
//
// 2. IOMemDeviceService: in-process device emulation. Drivers register
//    under a path prefix, device nodes live in a private filesystem and
//    every open descriptor carries the messages posted by its driver. Used
//    where no kernel driver model is available, and during UT.
//
package sysio

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nestybox/sysbox-osal/domain"
)

func NewIOService(t domain.IOServiceType) domain.IOServiceIface {

	switch t {

	case domain.IODeviceFileService:
		return newDeviceFileService()

	case domain.IOMemDeviceService:
		return NewMemDeviceService(afero.NewMemMapFs(), DefaultDrivers())

	default:
		logrus.Panicf("Unsupported ioService required: %v", t)
	}

	return nil
}
