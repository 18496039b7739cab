/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New"" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: Command line flags, optionally overlaid by a JSON settings file.
*/

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/b3nn0/imulog/sampler"
	"github.com/b3nn0/imulog/sensors/icm20689"
)

var (
	accelChoices    = []int{2, 4, 8, 16}
	gyroChoices     = []int{250, 500, 1000, 2000}
	waitChoices     = []string{"spin", "sleep"}
	serviceCommands = []string{"install", "remove", "start", "stop", "status"}
)

var errUsage = errors.New("usage: " + name + " [flags] <db> | " + name + " [flags] install <db> | " + name + " remove | start | stop | status")

type Settings struct {
	DB               string
	SampleRate       int
	AccelSensitivity int
	GyroSensitivity  int
	Bus              int
	Address          int
	Wait             string
	Count            uint64
	MetricsAddr      string
	LogFile          string
	DEBUG            bool
}

func defaultSettings() Settings {
	return Settings{
		SampleRate:       sampler.DefaultRate,
		AccelSensitivity: 16,
		GyroSensitivity:  2000,
		Bus:              1,
		Address:          int(icm20689.Address),
		Wait:             "spin",
	}
}

// address accepts decimal or 0x-prefixed I2C addresses.
type address struct{ v *int }

func (a address) String() string {
	if a.v == nil {
		return ""
	}
	return fmt.Sprintf("0x%02x", *a.v)
}

func (a address) Set(s string) error {
	v, err := strconv.ParseInt(s, 0, 16)
	if err != nil {
		return err
	}
	*a.v = int(v)
	return nil
}

// parseSettings parses the command line. command is one of serviceCommands, or empty when
// imulog should sample into s.DB.
func parseSettings(args []string, output io.Writer) (s Settings, command string, err error) {
	s = defaultSettings()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&s.SampleRate, "samplerate", s.SampleRate, "Samples per second to record")
	fs.IntVar(&s.SampleRate, "r", s.SampleRate, "Shorthand for -samplerate")
	fs.IntVar(&s.AccelSensitivity, "asens", s.AccelSensitivity, "Accelerometer sensitivity, g: 2, 4, 8 or 16")
	fs.IntVar(&s.AccelSensitivity, "a", s.AccelSensitivity, "Shorthand for -asens")
	fs.IntVar(&s.GyroSensitivity, "gsens", s.GyroSensitivity, "Gyroscope sensitivity, deg/s: 250, 500, 1000 or 2000")
	fs.IntVar(&s.GyroSensitivity, "g", s.GyroSensitivity, "Shorthand for -gsens")
	fs.IntVar(&s.Bus, "bus", s.Bus, "I2C bus number")
	fs.Var(address{&s.Address}, "address", "I2C address of the IMU")
	fs.StringVar(&s.Wait, "wait", s.Wait, "How to wait for the next sample: spin or sleep")
	fs.Uint64Var(&s.Count, "count", s.Count, "Stop after this many samples, 0 runs until interrupted")
	fs.StringVar(&s.MetricsAddr, "metrics", s.MetricsAddr, "Serve /metrics and /status on this address, e.g. :9978")
	fs.StringVar(&s.LogFile, "log", s.LogFile, "Also write the log to this file")
	fs.BoolVar(&s.DEBUG, "debug", s.DEBUG, "Verbose logging")
	configFile := fs.String("config", "", "JSON settings file, overridden by explicit flags")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), errUsage)
		fs.PrintDefaults()
	}

	if err = fs.Parse(args); err != nil {
		return s, "", err
	}

	if *configFile != "" {
		if err = readSettings(*configFile, &s); err != nil {
			return s, "", err
		}
		// Parse again so flags given on the command line win over the file.
		if err = fs.Parse(args); err != nil {
			return s, "", err
		}
	}

	positional := fs.Args()
	if len(positional) > 0 && slices.Contains(serviceCommands, positional[0]) {
		command = positional[0]
		positional = positional[1:]
	}
	switch {
	case len(positional) == 1:
		s.DB = positional[0]
	case len(positional) > 1:
		return s, command, errUsage
	}
	if s.DB == "" && (command == "" || command == "install") {
		return s, command, errUsage
	}

	return s, command, s.validate()
}

// readSettings overlays the JSON file at path onto s.
func readSettings(path string, s *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("can't read settings %s: %w", path, err)
	}
	if err := json.Unmarshal(buf, s); err != nil {
		return fmt.Errorf("can't read settings %s: %w", path, err)
	}
	return nil
}

func (s Settings) validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid samplerate %d: must be positive", s.SampleRate)
	}
	if !slices.Contains(accelChoices, s.AccelSensitivity) {
		return fmt.Errorf("invalid asens %d: choose from %v", s.AccelSensitivity, accelChoices)
	}
	if !slices.Contains(gyroChoices, s.GyroSensitivity) {
		return fmt.Errorf("invalid gsens %d: choose from %v", s.GyroSensitivity, gyroChoices)
	}
	if !slices.Contains(waitChoices, s.Wait) {
		return fmt.Errorf("invalid wait %q: choose from %v", s.Wait, waitChoices)
	}
	if s.Bus < 0 || s.Bus > 255 {
		return fmt.Errorf("invalid bus %d", s.Bus)
	}
	if s.Address < 0x03 || s.Address > 0x77 {
		return fmt.Errorf("invalid I2C address 0x%02x", s.Address)
	}
	return nil
}

// samplerConfig converts the settings; they must have been validated.
func (s Settings) samplerConfig() (sampler.Config, error) {
	wait, err := sampler.ParseWaitStrategy(s.Wait)
	if err != nil {
		return sampler.Config{}, err
	}
	return sampler.Config{
		Rate:           s.SampleRate,
		Wait:           wait,
		ReportInterval: sampler.DefaultReportInterval,
		Limit:          s.Count,
	}, nil
}

// serviceArgs returns the arguments the installed service runs with: the command line without
// the service command itself.
func serviceArgs(args []string, command string) []string {
	out := make([]string, 0, len(args))
	dropped := false
	for _, a := range args {
		if !dropped && a == command {
			dropped = true
			continue
		}
		out = append(out, a)
	}
	return out
}
