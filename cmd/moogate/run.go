package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/chase3718/moogate/internal/config"
	"github.com/chase3718/moogate/internal/engine"
	"github.com/chase3718/moogate/internal/midiin"
	"github.com/chase3718/moogate/internal/monitor"
	"github.com/chase3718/moogate/internal/note"
	"github.com/chase3718/moogate/internal/output"
	"github.com/chase3718/moogate/internal/panel"
)

var (
	driverFlag string
	portFlag   string
	httpFlag   string
)

func runController(cmd *cobra.Command, _ []string) error {
	log := initLogger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if driverFlag != "" {
		cfg.Output.Driver = driverFlag
	}
	if portFlag != "" {
		cfg.Output.Serial.Port = portFlag
	}
	if httpFlag != "" {
		cfg.Monitor.HTTPAddr = httpFlag
	}
	rng, err := cfg.Range()
	if err != nil {
		return err
	}
	prio, err := cfg.Priority()
	if err != nil {
		return err
	}
	retrig, err := cfg.RetrigMode()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	drv, err := openDriver(cfg, rng, log)
	if err != nil {
		return err
	}

	out := output.NewOutbox()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		output.Write(drv, out, log)
	}()

	eng := engine.New(engine.Config{
		Range:     rng,
		Priority:  prio,
		Cleanup:   cfg.Engine.Cleanup,
		Window:    cfg.Window(),
		Retrigger: retrig,
	}, out, clk, log)

	watcher, err := midiin.NewWatcher(midiin.Config{
		Preferred: cfg.MIDI.Preferred,
		Excluded:  cfg.MIDI.Excluded,
		Rescan:    cfg.Rescan(),
	}, eng, clk, log)
	if err != nil {
		out.Close()
		<-writerDone
		_ = drv.Close()
		return err
	}

	monCh := eng.Subscribe()
	ledCh := eng.Subscribe()

	var wg sync.WaitGroup

	mon := monitor.New(time.Duration(cfg.Monitor.QuietMs)*time.Millisecond, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(ctx, monCh)
	}()
	if cfg.Monitor.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mon.Serve(ctx, cfg.Monitor.HTTPAddr); err != nil {
				log.Error("monitor: http server", "err", err)
			}
		}()
	}

	pnl := panel.NewVirtual(clk, log)
	sampler := panel.NewSampler(pnl, func(b panel.Button) {
		switch b {
		case panel.ButtonPriority:
			eng.Enqueue(engine.CyclePriority{})
		case panel.ButtonCleanup:
			eng.Enqueue(engine.ToggleCleanup{})
		}
	}, time.Duration(cfg.Panel.SampleMs)*time.Millisecond,
		time.Duration(cfg.Panel.DebounceMs)*time.Millisecond, clk, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sampler.Run(ctx)
	}()

	ledInd := make(chan panel.Indication, 1)
	blk := panel.NewBlinker(pnl, ledInd,
		time.Duration(cfg.Panel.BlinkHalfPeriodMs)*time.Millisecond, clk, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		blk.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		forwardIndications(ctx, ledCh, ledInd)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchButtons(ctx, pnl)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := clk.Ticker(cfg.Rescan())
		defer tick.Stop()
		watcher.Tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				watcher.Tick()
			}
		}
	}()

	engDone := make(chan struct{})
	go func() {
		defer close(engDone)
		eng.Run(ctx)
	}()

	log.Info("moogate ready",
		"instrument", cfg.Instrument.Name,
		"range", rng.String(),
		"output", cfg.Output.Driver,
		"priority", prio.String(),
		"session", mon.Session(),
	)

	<-ctx.Done()
	log.Info("shutting down")

	// The engine emits a final gate-off frame before returning; close the
	// outbox only after that so the writer drains it into the driver.
	<-engDone
	wg.Wait()
	watcher.Close()
	out.Close()
	<-writerDone
	if err := drv.Close(); err != nil {
		log.Error("output: close", "err", err)
	}
	return nil
}

func openDriver(cfg config.Config, rng note.Range, log *slog.Logger) (output.Driver, error) {
	switch cfg.Output.Driver {
	case "serial":
		return output.OpenSerial(cfg.Output.Serial.Port, cfg.Output.Serial.Baud, log)
	case "audio":
		return output.NewAudioDriver(output.AudioConfig{
			SampleRate:   cfg.Output.Audio.SampleRate,
			CVSpanVolts:  cfg.Output.Audio.CVSpanVolts,
			HoldLastNote: cfg.Instrument.HoldLastNote,
		}, rng, cfg.Instrument.VoltsPerOctave, log)
	case "console":
		return output.NewConsoleDriver(log), nil
	default:
		return nil, fmt.Errorf("unknown output driver %q", cfg.Output.Driver)
	}
}

// forwardIndications adapts engine status snapshots into LED indications,
// keeping only the newest when the blinker lags behind.
func forwardIndications(ctx context.Context, updates <-chan engine.Status, out chan panel.Indication) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			sendIndication(out, panel.Indication{
				Blinks:  st.Priority.BlinkCount(),
				Cleanup: st.Cleanup,
			})
		}
	}
}

func sendIndication(out chan panel.Indication, ind panel.Indication) {
	for {
		select {
		case out <- ind:
			return
		default:
			select {
			case <-out:
			default:
			}
		}
	}
}

// watchButtons exposes the two front-panel buttons as process signals while
// no real hardware is attached: SIGUSR1 presses the priority button,
// SIGUSR2 the cleanup button.
func watchButtons(ctx context.Context, pnl *panel.Virtual) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-ch:
			switch s {
			case syscall.SIGUSR1:
				pnl.Press(panel.ButtonPriority)
			case syscall.SIGUSR2:
				pnl.Press(panel.ButtonCleanup)
			}
		}
	}
}
