// File: cmd/sink/main.go
// Package main
// Accepts TCP connections on the given ports and prints one marker per
// received chunk.
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

	"github.com/alexflint/go-arg"
	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/pool"
	"github.com/momentics/loadsink/sink"
)

type args struct {
	Ports     []int      `arg:"positional,required" help:"ports to listen on"`
	Host      string     `arg:"--host" default:"" help:"listen address, empty for all interfaces"`
	ChunkSize int        `arg:"--chunk-size" help:"read buffer per chunk in bytes"`
	RecvBuf   int        `arg:"--rcvbuf" default:"0" help:"SO_RCVBUF in bytes, 0 keeps the OS default"`
	LogLevel  slog.Level `arg:"--log-level" default:"info" help:"debug, info, warn or error"`
}

func (args) Description() string {
	return "Accepts TCP connections and prints '.' for every chunk received."
}

func main() {
	a := args{ChunkSize: pool.DefaultChunkSize}
	p, err := arg.NewParser(arg.Config{Program: "sink"}, &a)
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

	cfg := sink.DefaultConfig()
	cfg.Host = a.Host
	cfg.Ports = a.Ports
	cfg.ChunkSize = a.ChunkSize
	cfg.RecvBuffer = a.RecvBuf
	cfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sink.New(cfg, sink.NewPrinter(os.Stdout, logger))
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(2)
	}
	if err := s.Bind(ctx); err != nil {
		logger.Error("bind failed", "err", err)
		os.Exit(1)
	}
	if err := s.Serve(ctx); err != nil {
		logger.Error("sink stopped", "err", err, "code", api.CodeOf(err).String())
		os.Exit(1)
	}
	logger.Info("sink stopped", "stats", s.Stats())
}
