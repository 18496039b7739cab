/*
	Copyright (c) 2015-2016 Christopher Young
	Distributable under the terms of The "BSD New"" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	imulog.go: Sample an ICM-20689 at a fixed rate into a sqlite datalog.
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/takama/daemon"

	"github.com/b3nn0/imulog/datalog"
	"github.com/b3nn0/imulog/sampler"
	"github.com/b3nn0/imulog/sensors"
	"github.com/b3nn0/imulog/sensors/icm20689"
)

const (
	// name of the service
	name        = "imulog"
	description = "ICM-20689 accelerometer and gyroscope logger"
)

var stdlog, errlog *log.Logger

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage runs one of the service commands.
func (service *Service) Manage(command string, args []string) (string, error) {
	switch command {
	case "install":
		return service.Install(args...)
	case "remove":
		return service.Remove()
	case "start":
		return service.Start()
	case "stop":
		return service.Stop()
	case "status":
		return service.Status()
	}
	return errUsage.Error(), nil
}

type status struct {
	Settings Settings
	Samples  uint64
}

func statusHandler(s Settings, smp *sampler.Sampler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statusJSON, _ := json.Marshal(status{Settings: s, Samples: smp.Samples()})
		w.Header().Set("Content-Type", "application/json")
		w.Write(statusJSON)
	}
}

func serveMetrics(addr string, s Settings, smp *sampler.Sampler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/status", statusHandler(s, smp))
	log.Printf("Metrics Info: listening on %s\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("Metrics Error: ListenAndServe: %s\n", err.Error())
	}
}

// logRawReadings logs one unscaled reading, if imu exposes its output registers.
func logRawReadings(imu sensors.IMUReader) {
	raw, ok := imu.(sensors.RawIMUReader)
	if !ok {
		return
	}
	a, aerr := raw.AccelerationRaw()
	g, gerr := raw.AngularRateRaw()
	logDbg("IMU Debug: raw accel %v (%v), raw gyro %v (%v)\n", a, aerr, g, gerr)
}

// run samples until interrupted and returns the process exit code. Every resource is released
// on the way out, including after an interrupt or a failed read.
func run(s Settings) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debugEnabled = s.DEBUG
	if s.LogFile != "" {
		stopLogging, err := initLogging(ctx, s.LogFile)
		if err != nil {
			return 1
		}
		defer stopLogging()
	}
	checkFreeSpace(filepath.Dir(s.DB))

	accel, err := icm20689.ParseAccelRange(s.AccelSensitivity)
	if err != nil {
		log.Printf("IMU Error: %s\n", err)
		return 2
	}
	gyro, err := icm20689.ParseGyroRange(s.GyroSensitivity)
	if err != nil {
		log.Printf("IMU Error: %s\n", err)
		return 2
	}
	cfg, err := s.samplerConfig()
	if err != nil {
		log.Printf("Sampler Error: %s\n", err)
		return 2
	}

	imu, err := sensors.NewICM20689(byte(s.Bus), byte(s.Address), accel, gyro)
	if err != nil {
		log.Printf("IMU Error: couldn't initialize ICM20689: %s\n", err)
		return 1
	}
	defer imu.Close()
	if debugEnabled {
		logRawReadings(imu)
	}

	dl, err := datalog.Open(s.DB)
	if err != nil {
		log.Printf("Datalog Error: %s\n", err)
		return 1
	}
	defer dl.Close()

	smp, err := sampler.New(cfg, imu, dl, sampler.WithMetrics(sampler.NewMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		log.Printf("Sampler Error: %s\n", err)
		return 2
	}
	if s.MetricsAddr != "" {
		go serveMetrics(s.MetricsAddr, s, smp)
	}

	log.Println("Start")
	if _, err := smp.Run(ctx); err != nil {
		log.Printf("Sampler Error: %s\n", err)
		return 1
	}
	return 0
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	s, command, err := parseSettings(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(2)
	}

	if command != "" {
		srv, err := daemon.New(name, description, daemon.SystemDaemon)
		if err != nil {
			errlog.Println("Error: ", err)
			os.Exit(1)
		}
		service := &Service{srv}
		msg, err := service.Manage(command, serviceArgs(os.Args[1:], command))
		if err != nil {
			errlog.Println(msg, "\nError: ", err)
			os.Exit(1)
		}
		stdlog.Println(msg)
		return
	}

	os.Exit(run(s))
}
