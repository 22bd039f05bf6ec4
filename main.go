//go:build tinygo

package main

import (
	"context"
	"log/slog"
	"machine"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers/espat"
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/ledchain"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/lights"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/protocol"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/render"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/scheduler"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/storage"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/transport"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/serial"
)

// Build-time WiFi credentials, used until a config is provisioned:
//
//	tinygo flash -target pico -ldflags "-X main.ssid=... -X main.passphrase=..."
var (
	ssid       string
	passphrase string
)

// Pin assignments
const (
	pinSPISCK  = machine.GP18
	pinSPISDO  = machine.GP19
	pinSPISDI  = machine.GP16
	pinChainCS = machine.GP17

	pinWifiTx = machine.GP0
	pinWifiRx = machine.GP1

	pinService1R = machine.GP6
	pinService1G = machine.GP7
	pinService1B = machine.GP8
	pinService2R = machine.GP9
	pinService2G = machine.GP10
	pinService2B = machine.GP11
	pinJobsR     = machine.GP12
	pinJobsG     = machine.GP13
	pinJobsB     = machine.GP14
)

var halted atomic.Bool

// MAIN THREAD DUTIES
//
// bring up storage and the display, join WiFi, then hand over to the
// scheduler loop. The serial handler runs alongside from the start so a
// board that cannot join can still be provisioned.
func main() {
	console := serial.NewConsole(machine.Serial)
	logger := slog.New(slog.NewTextHandler(console, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	sm, err := storage.New(machine.Flash, true, logger)
	if err != nil {
		logger.Error("storage unavailable", "error", err)
	}
	cfg := loadConfig(sm, logger)

	renderer := setupDisplay(&cfg, logger)
	if err := renderer.Draw(render.BootScene()); err != nil {
		logger.Error("draw boot scene", "error", err)
	}

	published := state.NewPublished()
	if sm != nil {
		mainSerial := serial.NewSerial(console, protocol.NewHandler(sm, published, logger), restart, logger)
		go mainSerial.Handle()
	}

	if err := joinWifi(&cfg, logger); err != nil {
		logger.Error("wifi unavailable", "ssid", cfg.GetSSID(), "error", err)
		if err := renderer.Draw(render.ErrorScene()); err != nil {
			logger.Error("draw error scene", "error", err)
		}
		time.Sleep(cfg.RestartDelay())
		restart()
	}

	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: config.WatchdogTimeoutMs})
	machine.Watchdog.Start()

	target := transport.Target{Host: cfg.GetHost(), Port: cfg.Port, Path: cfg.GetPath()}
	fetcher := transport.NewFetcher(transport.NewNet(cfg.ReceiveTimeout()), target, cfg.ReceiveTimeout(), 0, logger)
	logger.Info("polling", "target", target.String(), "every", cfg.Refresh().String())

	loop := scheduler.New(fetcher, renderer, scheduler.OptionsFrom(&cfg), published, logger)
	loop.SetHeartbeat(feedWatchdog)
	loop.Run(context.Background())
}

// loadConfig returns the stored config, or the defaults with the build-time
// credentials when nothing valid is stored.
func loadConfig(sm *storage.Manager, logger *slog.Logger) config.Config {
	cfg := config.Default()
	cfg.SetSSID(ssid)
	cfg.SetPassphrase(passphrase)
	if sm == nil {
		return cfg
	}

	var stored config.Config
	if err := sm.LoadConfig(&stored); err != nil {
		logger.Info("using default config", "reason", err)
		return cfg
	}
	if err := stored.Validate(); err != nil {
		logger.Warn("stored config invalid, using defaults", "error", err)
		return cfg
	}
	if stored.GetSSID() == "" {
		stored.SSID = cfg.SSID
		stored.Passphrase = cfg.Passphrase
	}
	return stored
}

func setupDisplay(cfg *config.Config, logger *slog.Logger) *render.Renderer {
	machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 1_000_000,
		SCK:       pinSPISCK,
		SDO:       pinSPISDO,
		SDI:       pinSPISDI,
	})

	pinChainCS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	chain := ledchain.New(machine.SPI0, pinChainCS, render.PanelCount)
	if err := chain.Configure(cfg.Intensity); err != nil {
		logger.Error("configure led chain", "error", err)
	}

	for _, p := range []machine.Pin{
		pinService1R, pinService1G, pinService1B,
		pinService2R, pinService2G, pinService2B,
		pinJobsR, pinJobsG, pinJobsB,
	} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	bank := lights.NewBank(
		lights.Indicator{R: pinService1R, G: pinService1G, B: pinService1B},
		lights.Indicator{R: pinService2R, G: pinService2G, B: pinService2B},
		lights.Indicator{R: pinJobsR, G: pinJobsG, B: pinJobsB},
	)

	return render.New(chain, bank, logger)
}

func joinWifi(cfg *config.Config, logger *slog.Logger) error {
	dev := espat.NewDevice(&espat.Config{
		Uart: machine.UART0,
		Tx:   pinWifiTx,
		Rx:   pinWifiRx,
	})
	netdev.UseNetdev(dev)

	logger.Info("joining wifi", "ssid", cfg.GetSSID())
	return dev.NetConnect(&netlink.ConnectParams{
		Ssid:       cfg.GetSSID(),
		Passphrase: cfg.GetPassphrase(),
	})
}

func feedWatchdog() {
	if !halted.Load() {
		machine.Watchdog.Update()
	}
}

// restart stops feeding the watchdog and lets it reset the board.
func restart() {
	slog.Warn("restarting")
	halted.Store(true)
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	machine.Watchdog.Start()
	for {
		time.Sleep(time.Second)
	}
}
