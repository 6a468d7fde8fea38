// File: cmd/driver/main.go
// Package main
// Opens many concurrent TCP connections to one target and writes a fixed
// payload on each of them.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/driver"
)

type args struct {
	Host           string        `arg:"--host" default:"127.0.0.1" help:"target host"`
	Port           int           `arg:"--port" default:"8080" help:"target port"`
	Connections    int           `arg:"-c,--connections" default:"200" help:"concurrent connections to open"`
	Writes         int           `arg:"-n,--writes" default:"200" help:"payload writes per connection"`
	Payload        string        `arg:"--payload" default:"Hello, server!" help:"bytes written on every write"`
	Delay          time.Duration `arg:"--delay" default:"1s" help:"pause between writes on one connection"`
	Rate           int64         `arg:"--rate" default:"0" help:"per-connection write limit in bytes/s, 0 is unlimited"`
	ConnectTimeout time.Duration `arg:"--connect-timeout" default:"0s" help:"dial timeout, 0 waits for the OS"`
	Linger         time.Duration `arg:"--linger" default:"-1s" help:"SO_LINGER, negative keeps the OS default, 0 resets on close"`
	LogLevel       slog.Level    `arg:"--log-level" default:"info" help:"debug, info, warn or error"`
}

func (args) Description() string {
	return "Drives concurrent TCP write load against one host:port."
}

func main() {
	var a args
	p, err := arg.NewParser(arg.Config{Program: "driver"}, &a)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	switch err := p.Parse(os.Args[1:]); {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(os.Stdout)
		return
	case err != nil:
		p.WriteUsage(os.Stderr)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: a.LogLevel}))

	cfg := driver.DefaultConfig()
	cfg.Host = a.Host
	cfg.Port = a.Port
	cfg.Connections = a.Connections
	cfg.Writes = a.Writes
	cfg.Payload = []byte(a.Payload)
	cfg.Delay = a.Delay
	cfg.RateLimit = a.Rate
	cfg.Dial.Timeout = a.ConnectTimeout
	cfg.Dial.Linger = a.Linger
	cfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := driver.Run(ctx, cfg)
	if err != nil {
		logger.Error("driver not started", "err", err)
		if api.CodeOf(err) == api.ErrCodeInvalidArgument {
			os.Exit(2)
		}
		os.Exit(1)
	}
	logger.Info("load finished", "report", rep)
	if rep.Launched > 0 && rep.Connected == 0 {
		os.Exit(1)
	}
}
