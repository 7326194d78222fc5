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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	osal "github.com/nestybox/sysbox-osal"
	"github.com/nestybox/sysbox-osal/domain"
)

const (
	usage = `osal-probe

osal-probe exercises the platform abstraction layer of the running build:
time, sockets, devices and terminal control.
`
)

// Globals to be populated at build time during Makefile processing.
var (
	version  string // extracted from VERSION file
	commitId string // latest git commit-id
	builtAt  string // build time
	builtBy  string // build owner
)

// Services of the build platform, set up before any command runs.
var layer *osal.Layer

// Active cpu profile, if requested.
var prof interface{ Stop() }

//
// osal-probe main function
//
func main() {

	app := cli.NewApp()
	app.Name = "osal-probe"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log",
			Value: "/dev/stdout",
			Usage: "log file path",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.IntFlag{
			Name:  "term-fd",
			Value: -1,
			Usage: "terminal descriptor for echo control (default: stdin)",
		},
		cli.StringFlag{
			Name:  "mem-device",
			Usage: "physical memory device (default: platform specific)",
		},
		cli.StringFlag{
			Name:  "profile",
			Usage: "write a cpu profile to the given directory",
		},
	}

	// show-version specialization.
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("osal-probe\n"+
			"\tversion: \t%s\n"+
			"\tcommit: \t%s\n"+
			"\tbuilt at: \t%s\n"+
			"\tbuilt by: \t%s\n",
			c.App.Version, commitId, builtAt, builtBy)
	}

	app.Commands = []cli.Command{
		platformCommand,
		sleepCommand,
		udpSelftestCommand,
		udpEchoCommand,
		deviceCommand,
		echoCommand,
	}

	app.Before = before
	app.After = func(ctx *cli.Context) error {
		if prof != nil {
			prof.Stop()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// Define 'debug' and 'log' settings, then bring the layer up.
func before(ctx *cli.Context) error {

	// Create/set the log-file destination.
	if path := ctx.GlobalString("log"); path != "" && path != "/dev/stdout" {
		f, err := os.OpenFile(
			path,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC,
			0666,
		)
		if err != nil {
			logrus.Fatalf(
				"Error opening log file %v: %v. Exiting ...",
				path, err,
			)
			return err
		}
		logrus.SetOutput(f)
	}

	// Set a proper logging formatter.
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	// Set desired log-level.
	if logLevel := ctx.GlobalString("log-level"); logLevel != "" {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			logrus.Fatalf("%v. Exiting ...", err)
			return err
		}
		logrus.SetLevel(level)
	} else {
		// Set 'info' as our default log-level.
		logrus.SetLevel(logrus.InfoLevel)
	}

	if dir := ctx.GlobalString("profile"); dir != "" {
		prof = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(dir),
			profile.NoShutdownHook,
			profile.Quiet,
		)
	}

	layer = osal.NewWithConfig(osal.Config{
		MemDevice: ctx.GlobalString("mem-device"),
		TermFd:    ctx.GlobalInt("term-fd"),
	})

	logrus.Debugf("Running on %v (%v)", layer.Platform, layer.Features)

	return nil
}

func parseLogLevel(s string) (logrus.Level, error) {
	switch s {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	}

	return logrus.InfoLevel, fmt.Errorf("log-level option '%v' not recognized", s)
}

var platformCommand = cli.Command{
	Name:  "platform",
	Usage: "Show the platform and capability groups of this build",
	Action: func(ctx *cli.Context) error {
		fmt.Printf("platform: %v\n", layer.Platform)
		fmt.Printf("features: %v\n", layer.Features)
		return nil
	},
}

var sleepCommand = cli.Command{
	Name:  "sleep",
	Usage: "Sleep and report the elapsed time measured by the layer",
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "ms",
			Value: 100,
			Usage: "milliseconds to sleep",
		},
	},
	Action: func(ctx *cli.Context) error {
		ts := layer.Time

		t0 := ts.ElapsedMillisecondsSince(0)
		ts.SleepMilliseconds(domain.Time(ctx.Uint("ms")))
		fmt.Printf("slept %d ms\n", ts.ElapsedMillisecondsSince(t0))

		return nil
	},
}

// UDP datagram sent to ourselves over the loopback interface.
func udpSelftest(ss domain.SocketServiceIface, payload []byte) error {

	if err := ss.Init(); err != nil {
		return err
	}
	defer ss.Cleanup()

	fd, err := ss.Create(domain.SocketDgram)
	if err != nil {
		return err
	}
	defer ss.Close(fd)

	var addr domain.SockAddr
	if err := ss.Aton("127.0.0.1", &addr); err != nil {
		return err
	}
	if err := ss.Bind(fd, &addr); err != nil {
		return err
	}
	if err := ss.LocalAddr(fd, &addr); err != nil {
		return err
	}

	if _, err := ss.SendTo(fd, payload, &addr); err != nil {
		return err
	}

	var read domain.FdSet
	ss.FdSet(fd, &read)
	if n := ss.Select(fd+1, &read, nil, nil, 1000); n != 1 {
		return fmt.Errorf("datagram not received (select returned %d)", n)
	}

	var from domain.SockAddr
	buf := make([]byte, len(payload)+16)

	n, err := ss.RecvFrom(fd, buf, &from)
	if err != nil {
		return err
	}
	if n != len(payload) || string(buf[:n]) != string(payload) {
		return fmt.Errorf("received %q from %v; sent %q", buf[:n], &from, payload)
	}

	logrus.Infof("Received %d bytes from %v", n, &from)

	return nil
}

var udpSelftestCommand = cli.Command{
	Name:  "udp-selftest",
	Usage: "Send a datagram to ourselves over loopback",
	Action: func(ctx *cli.Context) error {
		if err := udpSelftest(layer.Socket, []byte("0123456789")); err != nil {
			return err
		}
		fmt.Println("udp selftest passed")
		return nil
	},
}

//
// UDP echo daemon: every datagram is returned to its sender. Selects with a
// short timeout so termination signals are noticed while idle.
//
func udpEcho(ss domain.SocketServiceIface, port uint16, stop <-chan os.Signal) error {

	if err := ss.Init(); err != nil {
		return err
	}
	defer ss.Cleanup()

	fd, err := ss.Create(domain.SocketDgram)
	if err != nil {
		return err
	}
	defer ss.Close(fd)

	addr := domain.SockAddr{Port: port}
	if err := ss.Bind(fd, &addr); err != nil {
		return err
	}
	if err := ss.LocalAddr(fd, &addr); err != nil {
		return err
	}

	logrus.Infof("Echoing datagrams on %v", &addr)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logrus.Warnf("Could not notify systemd: %v", err)
	} else if ok {
		logrus.Debug("Readiness notified to systemd")
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	buf := make([]byte, 64*1024)

	for {
		select {
		case s := <-stop:
			logrus.Warnf("Caught OS signal: %s", s)
			return nil
		default:
		}

		var read domain.FdSet
		ss.FdSet(fd, &read)

		n := ss.Select(fd+1, &read, nil, nil, 500)
		if n < 0 {
			return fmt.Errorf("select failed on %v", &addr)
		}
		if n == 0 {
			continue
		}

		var from domain.SockAddr
		rcvd, err := ss.RecvFrom(fd, buf, &from)
		if err != nil {
			logrus.Errorf("Receive failed: %v", err)
			continue
		}
		if _, err := ss.SendTo(fd, buf[:rcvd], &from); err != nil {
			logrus.Errorf("Echo to %v failed: %v", &from, err)
		}
	}
}

var udpEchoCommand = cli.Command{
	Name:  "udp-echo",
	Usage: "Run a UDP echo service until interrupted",
	Flags: []cli.Flag{
		cli.UintFlag{
			Name:  "port",
			Value: 7007,
			Usage: "udp port to listen on",
		},
	},
	Action: func(ctx *cli.Context) error {
		var stop = make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stop)

		return udpEcho(layer.Socket, uint16(ctx.Uint("port")), stop)
	},
}

var deviceCommand = cli.Command{
	Name:  "device",
	Usage: "Raw device access",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "device to open",
		},
	},
	Subcommands: []cli.Command{
		{
			Name:  "read",
			Usage: "Read once from the device",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "size",
					Value: 256,
					Usage: "maximum bytes to read",
				},
			},
			Action: func(ctx *cli.Context) error {
				return deviceRead(layer.Device, ctx.Parent().String("name"), ctx.Int("size"))
			},
		},
		{
			Name:      "write",
			Usage:     "Write the argument to the device",
			ArgsUsage: "<data>",
			Action: func(ctx *cli.Context) error {
				return deviceWrite(layer.Device, ctx.Parent().String("name"), ctx.Args().First())
			},
		},
	},
}

func deviceRead(ds domain.DeviceServiceIface, name string, size int) error {

	if size <= 0 {
		return fmt.Errorf("invalid read size %d", size)
	}

	fd, err := ds.Open(name)
	if err != nil {
		return err
	}
	defer ds.Close(fd)

	buf := make([]byte, size)
	n, err := ds.Read(fd, buf)
	if err != nil {
		return err
	}

	fmt.Printf("%d bytes: %q\n", n, buf[:n])

	return nil
}

func deviceWrite(ds domain.DeviceServiceIface, name string, data string) error {

	fd, err := ds.Open(name)
	if err != nil {
		return err
	}
	defer ds.Close(fd)

	n, err := ds.Write(fd, []byte(data))
	if err != nil {
		return err
	}

	fmt.Printf("%d bytes written\n", n)

	return nil
}

var echoCommand = cli.Command{
	Name:      "echo",
	Usage:     "Switch terminal echo",
	ArgsUsage: "off|on",
	Action: func(ctx *cli.Context) error {
		switch ctx.Args().First() {
		case "off":
			layer.Term.EchoOff()
		case "on":
			layer.Term.EchoOn()
		default:
			return cli.NewExitError("expected 'off' or 'on'", 1)
		}
		return nil
	},
}
