/*
	Copyright (c) 2023 Adrian Batzill
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	logging.go: Duplicate go logging to a file, watch log file size and rotate, delete old logs

*/

package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/ricochet2200/go-disk-usage/du"
)

const (
	maxLogSize   = 10 * 1024 * 1024 // rotate above 10mb
	maxLogNum    = 9                // generations kept besides the live file
	minFreeSpace = 50 * 1024 * 1024 // leave 50mb free
)

var (
	debugLogf     string // Set from the -log flag.
	logFileHandle *os.File
	debugEnabled  bool
)

// getLogFiles returns the rotated generations of debugLogf, newest first.
func getLogFiles() []string {
	entries, err := os.ReadDir(filepath.Dir(debugLogf))
	logs := make([]string, 0)
	if err != nil {
		return logs
	}

	base := filepath.Base(debugLogf)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), base+".") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimPrefix(e.Name(), base+".")); err != nil {
			continue
		}
		logs = append(logs, filepath.Join(filepath.Dir(debugLogf), e.Name()))
	}
	sort.Slice(logs, func(i, j int) bool { return logGeneration(logs[i]) < logGeneration(logs[j]) })
	return logs
}

func logGeneration(path string) int {
	parts := strings.Split(path, ".")
	n, _ := strconv.Atoi(parts[len(parts)-1])
	return n
}

func rotateLogs() {
	logs := getLogFiles()

	// rename suffix, remove if > maxLogNum
	for i := len(logs) - 1; i >= 0; i-- {
		logNum := logGeneration(logs[i])
		if logNum >= maxLogNum {
			os.Remove(logs[i])
		} else {
			os.Rename(logs[i], debugLogf+"."+strconv.Itoa(logNum+1))
		}
	}

	// Now rename current log file and re-open
	os.Rename(debugLogf, debugLogf+".1")
	openLogFile()
}

func deleteOldestLog() int64 {
	logs := getLogFiles()
	if len(logs) == 0 {
		return 0
	}
	oldest := logs[len(logs)-1]
	stat, err := os.Stat(oldest)
	if err != nil {
		return 0
	}
	if err := os.Remove(oldest); err != nil {
		return 0
	}
	return stat.Size()
}

// checkFreeSpace warns when the filesystem holding dir is running full. It returns 0 without
// a warning when dir can't be inspected.
func checkFreeSpace(dir string) uint64 {
	if _, err := os.Stat(dir); err != nil {
		logDbg("Datalog Debug: can't check free space: %s\n", err)
		return 0
	}
	free := du.NewDiskUsage(dir).Free()
	if free < minFreeSpace {
		log.Printf("Datalog Warning: only %s free in %s\n", humanize.Bytes(free), dir)
	}
	return free
}

func logFileWatcher(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		logSize, err := os.Stat(debugLogf)
		if err == nil && logSize.Size() > maxLogSize {
			log.Printf("Rotating %s at %s\n", debugLogf, humanize.Bytes(uint64(logSize.Size())))
			rotateLogs()
		}

		freeBytes := int64(du.NewDiskUsage(filepath.Dir(debugLogf)).Free())
		for freeBytes < minFreeSpace {
			deleted := deleteOldestLog()
			if deleted == 0 {
				break
			}
			freeBytes += deleted
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func openLogFile() error {
	oldFp := logFileHandle
	fp, err := os.OpenFile(debugLogf, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open log file '%s': %s\n", debugLogf, err.Error())
		return err
	}
	logFileHandle = fp
	log.SetOutput(io.MultiWriter(fp, os.Stdout))
	if oldFp != nil {
		oldFp.Close()
	}
	return nil
}

func closeLogFile() {
	log.SetOutput(os.Stdout)
	if logFileHandle != nil {
		logFileHandle.Close()
		logFileHandle = nil
	}
}

// initLogging duplicates log output into path and keeps it rotated until ctx is done or stop
// is called. stop waits for the watcher before closing the file.
func initLogging(ctx context.Context, path string) (stop func(), err error) {
	debugLogf = path
	if err := openLogFile(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logFileWatcher(ctx)
	}()
	return func() {
		cancel()
		<-done
		closeLogFile()
	}, nil
}

func logDbg(msg string, args ...any) {
	if debugEnabled {
		log.Printf(msg, args...)
	}
}
