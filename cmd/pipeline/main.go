package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/drostifrosti/openpose/internal/config"
	"github.com/drostifrosti/openpose/internal/logging"
	"github.com/drostifrosti/openpose/internal/monitoring"
	"github.com/drostifrosti/openpose/internal/pipeline"
	"github.com/drostifrosti/openpose/internal/pipeline/worker"
	"github.com/drostifrosti/openpose/internal/server"
	"github.com/drostifrosti/openpose/internal/stages"
	"github.com/drostifrosti/openpose/internal/stages/estimate"
	"github.com/drostifrosti/openpose/internal/stages/record"
	"github.com/drostifrosti/openpose/internal/stages/source"
)

const modelSeed = 42

func main() {
	cfgPath := flag.String("config", "", "YAML pipeline spec overriding environment configuration")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("pipeline failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(cfg *config.Config, log *logging.Logger) error {
	metrics := monitoring.NewMetrics()

	src := source.New(source.Config{
		FPS:    cfg.Source.FPS,
		Frames: cfg.Source.Frames,
		Size:   cfg.Source.Size,
	})

	var chains [][]worker.Worker[*stages.Frame]
	if cfg.Estimate.Enabled {
		for i := 0; i < cfg.Engine.Replicas; i++ {
			chains = append(chains, []worker.Worker[*stages.Frame]{
				estimate.New(fmt.Sprintf("estimate-%d", i), cfg.Source.Size, modelSeed),
			})
		}
	}

	var outputs []worker.Worker[*stages.Frame]
	var recorder *record.Recorder
	if cfg.Record.Enabled {
		var err error
		recorder, err = record.New(cfg.Record.Path)
		if err != nil {
			return err
		}
		outputs = append(outputs, recorder)
	} else {
		outputs = append(outputs, worker.Transform("discard", func(*stages.Frame) error {
			return nil
		}))
	}

	pipe := pipeline.New[*stages.Frame](
		pipeline.WithLogger[*stages.Frame](log),
		pipeline.WithMetrics[*stages.Frame](metrics),
	)
	if !cfg.Engine.MultiThread {
		pipe.DisableMultiThreading()
	}
	if err := pipe.Configure(pipeline.Config[*stages.Frame]{
		Mode:          pipeline.ModeSynchronous,
		Producer:      src,
		ComputeChains: chains,
		OutputWorkers: outputs,
		QueueCapacity: cfg.Engine.QueueCapacity,
	}); err != nil {
		return err
	}

	ctl := server.New(cfg.Control, pipe, metrics, log)
	serverErr := make(chan error, 1)
	go func() { serverErr <- ctl.Run() }()

	pipelineDone := make(chan error, 1)
	go func() { pipelineDone <- pipe.Exec() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigChan:
		log.Info("shutting down")
		pipe.Stop()
		runErr = <-pipelineDone
	case runErr = <-pipelineDone:
	case err := <-serverErr:
		pipe.Stop()
		<-pipelineDone
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctl.Shutdown(ctx); err != nil {
		log.Warn("control API shutdown", zap.Error(err))
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return err
		}
		log.Info("results recorded",
			zap.String("path", cfg.Record.Path),
			zap.Int("frames", recorder.Count()))
	}
	return runErr
}
