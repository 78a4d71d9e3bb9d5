// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceshield/cmd"
	"voiceshield/internal/analysis"
	"voiceshield/internal/audio"
	"voiceshield/internal/config"
	"voiceshield/internal/control"
	applog "voiceshield/internal/log"
	"voiceshield/internal/pcm"
	"voiceshield/internal/pipeline"
	"voiceshield/internal/transport"
	"voiceshield/internal/transport/udp"
	"voiceshield/internal/tui"
	"voiceshield/pkg/build"
)

// tuiLogFile receives log output while the terminal panel owns the screen.
const tuiLogFile = "voiceshield.log"

// main is the entry point for the voice obfuscation pipeline.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Open devices, build the filter chain and its control surface
//
// 2. Concurrent Phase (Hot Path):
//   - The pipeline goroutine captures, filters and renders audio
//   - Control, monitor and panel goroutines run alongside it
//
// 3. Shutdown Phase (Cold Path):
//   - Cancel on SIGINT/SIGTERM or when the panel quits
//   - Stop recording and publishers, close streams
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags, which is not fatal.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if inv.Command == cmd.CommandHelp {
		return
	}
	applog.SetLevel(inv.Config.Level())

	switch inv.Command {
	case cmd.CommandVersion:
		fmt.Println(build.GetBuildInfo())
	case cmd.CommandList:
		err = listDevices()
	case cmd.CommandProcess:
		err = processFile(inv.Config, inv.Args[0], inv.Args[1])
	default:
		err = run(inv)
	}
	if err != nil {
		applog.Fatalf("%v", err)
	}
}

// listDevices prints every PortAudio device.
func listDevices() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices(os.Stdout)
}

// processFile runs the configured chain over a WAV file.
func processFile(cfg *config.Config, inPath, outPath string) error {
	src, err := audio.OpenWAV(inPath, cfg.FramesPerBuffer())
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := audio.CreateWAV(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	chain, err := cfg.Filters.NewChain()
	if err != nil {
		sink.Close()
		return err
	}
	p, err := pipeline.New(src, sink, chain, cfg.Audio.BlockSize)
	if err != nil {
		sink.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	runErr := p.Run(ctx)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to finalise %s: %w", outPath, err)
	}

	stats := p.Stats()
	applog.Infof("Processed %d frames (%.2fs of audio) into %s in %v",
		stats.Frames, float64(stats.Frames)/pcm.SampleRate, outPath, time.Since(start).Round(time.Millisecond))
	return runErr
}

func run(inv *cmd.Invocation) error {
	cfg := inv.Config

	if inv.TUI {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		applog.SetOutput(f)
		defer applog.SetOutput(os.Stderr)
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	inDev, err := audio.InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return err
	}
	outDev, err := audio.ResolveOutputDevice(cfg.Audio.OutputDevice, cfg.Audio.Speakers, cfg.Audio.OutputMatch)
	if errors.Is(err, audio.ErrNoDevice) {
		return fmt.Errorf("%w (use --speakers or --output-device to pick another output)", err)
	}
	if err != nil {
		return err
	}

	chain, err := cfg.Filters.NewChain()
	if err != nil {
		return err
	}
	surface := control.New(chain)

	var ws *transport.WebSocketTransport
	if cfg.Control.Enabled {
		ws, err = transport.NewWebSocketTransport(cfg.Control.Address, surface)
		if err != nil {
			return err
		}
		defer ws.Close()

		unsubscribe := surface.Subscribe(func(st []control.FilterState) {
			if err := ws.Send(control.StateMessage(st)); err != nil {
				applog.Debugf("Control: state broadcast failed: %v", err)
			}
		})
		defer unsubscribe()
	}

	var opts []pipeline.Option

	var monitor *analysis.Monitor
	if cfg.Monitor.Enabled {
		t, err := monitorTransport(cfg.Monitor, ws)
		if err != nil {
			return err
		}
		if ws == nil {
			defer t.Close()
		}
		monitor, err = cfg.Monitor.NewMonitor(t)
		if err != nil {
			return err
		}
		monitor.Start()
		defer monitor.Close()
		opts = append(opts, pipeline.WithTap(monitor))
	}

	recorder := audio.NewRecorder()
	defer recorder.Close()
	opts = append(opts, pipeline.WithTap(recorder))
	if cfg.Recording.Enabled {
		if err := recorder.Start(cfg.RecordingPath(time.Now())); err != nil {
			return err
		}
	}

	capture, err := audio.OpenCapture(audio.StreamConfig{
		Device:          inDev,
		FramesPerBuffer: cfg.FramesPerBuffer(),
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		return err
	}
	defer capture.Close()

	render, err := audio.OpenRender(audio.StreamConfig{
		Device:          outDev,
		FramesPerBuffer: cfg.FramesPerBuffer(),
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		return err
	}
	defer render.Close()

	p, err := pipeline.New(capture, render, chain, cfg.Audio.BlockSize, opts...)
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()

	if inv.TUI {
		var reports tui.ReportFunc
		if monitor != nil {
			reports = monitor.Latest
		}
		if err := tui.Run(surface, reports); err != nil {
			applog.Errorf("TUI: %v", err)
		}
		stop()
	} else {
		fmt.Printf("Routing %q -> %q. Press Ctrl+C to stop.\n", inDev.Name, outDev.Name)
		if ws != nil {
			fmt.Printf("Control surface: ws://%s/ws\n", ws.Addr())
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	err = <-done
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := p.Stats()
	applog.Infof("Stopped after %d cycles, %d frames", stats.Cycles, stats.Frames)
	if path, ok := recorder.Recording(); ok {
		fmt.Printf("\nRecording saved to: %s\n", path)
	}
	return err
}

// monitorTransport picks where monitor reports go: the control clients when
// the WebSocket surface is up, a UDP target when configured, otherwise the
// debug log.
func monitorTransport(m config.MonitorConfig, ws *transport.WebSocketTransport) (transport.Transport, error) {
	switch {
	case ws != nil:
		return ws, nil
	case m.UDPTarget != "":
		return udp.NewSender(m.UDPTarget)
	default:
		return transport.NewLoggingTransport(), nil
	}
}
