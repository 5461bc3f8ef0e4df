// cmd/wdhwd/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"sync"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/michaelroland/wdnas-hwdaemon/internal/config"
	"github.com/michaelroland/wdnas-hwdaemon/internal/events"
	"github.com/michaelroland/wdnas-hwdaemon/internal/hwstate"
	"github.com/michaelroland/wdnas-hwdaemon/internal/ipc"
	"github.com/michaelroland/wdnas-hwdaemon/internal/notify"
	"github.com/michaelroland/wdnas-hwdaemon/internal/pmcproto"
	"github.com/michaelroland/wdnas-hwdaemon/internal/runtime"
	"github.com/michaelroland/wdnas-hwdaemon/internal/tempread"
	"github.com/michaelroland/wdnas-hwdaemon/internal/thermal"
)

// version is overridden at build time via -ldflags.
var version = "dev"

type options struct {
	ConfigPath string `short:"C" long:"config" description:"path to the configuration file" default:"/etc/wdhwd/wdhwd.yaml"`
	Verbose    []bool `short:"v" long:"verbose" description:"increase log verbosity (repeatable)"`
	Quiet      bool   `short:"q" long:"quiet" description:"log plain lines to stderr without timestamps (no messages are suppressed)"`
	Debug      bool   `short:"d" long:"debug" description:"enable debug logging"`
	Version    bool   `short:"V" long:"version" description:"print the version and exit"`
}

// chassisDefaultWidth is the bay count BayState is sized for; DL/PR
// appliances are 2-bay or 4-bay, so 4 never under-allocates. The width
// is not narrowed later: on a 2-bay chassis (DP0 bit 4 clear) only bays
// 0 and 1 are ever stored.
const chassisDefaultWidth = 4

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println("wdhwd", version)
		return
	}

	configureLogging(opts)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("wdhwd: config load failed: %v", err)
	}
	applyRuntimeDirectoryDefault(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("wdhwd: config validation failed: %v", err)
	}
	config.Normalize(cfg)

	drop, err := runtime.ResolvePrivDrop(cfg.User, cfg.Group)
	if err != nil {
		log.Fatalf("wdhwd: privilege drop target unresolved: %v", err)
	}

	link, err := pmcproto.OpenLink(pmcproto.LinkConfig{Device: cfg.PMCPort})
	if err != nil {
		log.Fatalf("wdhwd: failed to open PMC link %s: %v", cfg.PMCPort, err)
	}
	defer link.Close()

	engine := pmcproto.NewEngine(link, pmcproto.EngineConfig{})

	bays := hwstate.NewBayState(chassisDefaultWidth)
	sockets := hwstate.NewSocketState()

	router := events.NewRouter(engine, bays, sockets, events.Config{
		LongPressThreshold: time.Second,
		AutoBayPower:       false,
	})
	engine.SubscribeInterrupts(router.HandleInterrupt)

	duties := thermal.DefaultDuties
	duties[hwstate.LevelNormal] = cfg.FanSpeedNormal
	governor := thermal.NewGovernor(engine, thermal.Config{
		Duties:    duties,
		Increment: cfg.FanSpeedIncrement,
		Decrement: cfg.FanSpeedDecrement,
	})

	reader := tempread.New(tempread.Config{Drives: cfg.AdditionalDrives}, engine)
	readings := newLatestReading()
	tempOut := make(chan tempread.Result, 1)

	dispatcher := notify.NewDispatcher(cfg.Hooks.Registry())
	dispatcher.Start()

	controller := runtime.NewController(engine, cfg, drop)
	controller.SetGovernor(governor)
	controller.SetDispatcher(dispatcher)
	controller.SetBayState(bays)
	controller.SetSocketState(sockets)

	ipcServer := ipc.NewServer(ipc.Config{
		SocketPath: cfg.SocketPath,
		MaxClients: cfg.SocketMaxClients,
	}, controller)

	controller.Tasks = []runtime.SupervisedTask{
		{
			Name:  "pmc-link",
			Fatal: true,
			Run: func(ctx context.Context) error {
				engine.Run(ctx)
				return ctx.Err()
			},
		},
		{
			Name:  "temperature-reader",
			Fatal: true,
			Run: func(ctx context.Context) error {
				reader.Run(ctx, tempOut)
				return ctx.Err()
			},
		},
		{
			Name:  "temperature-bridge",
			Fatal: false,
			Run: func(ctx context.Context) error {
				return bridgeTemperature(ctx, tempOut, readings)
			},
		},
		{
			Name:  "fan-governor",
			Fatal: true,
			Run: func(ctx context.Context) error {
				governor.Run(ctx, readings.Source)
				return ctx.Err()
			},
		},
		{
			Name:  "notification-bridge",
			Fatal: false,
			Run: func(ctx context.Context) error {
				return bridgeNotifications(ctx, router, governor, dispatcher)
			},
		},
		{
			Name:  "ipc-server",
			Fatal: true,
			Run:   ipcServer.Run,
		},
	}

	if err := controller.Run(context.Background()); err != nil {
		log.Printf("wdhwd: controller exited with error: %v", err)
		os.Exit(2)
	}
}

// applyRuntimeDirectoryDefault honors systemd's RUNTIME_DIRECTORY as
// the default root for volatile state (here, the IPC socket) when the
// operator leaves socket_path unset in the config file.
func applyRuntimeDirectoryDefault(cfg *config.Config) {
	if cfg.SocketPath != "" {
		return
	}
	dir := os.Getenv("RUNTIME_DIRECTORY")
	if dir == "" {
		dir = "/run/wdhwd"
	}
	cfg.SocketPath = dir + "/wdhwd.sock"
}

func configureLogging(opts options) {
	switch {
	case opts.Quiet:
		log.SetOutput(os.Stderr)
		log.SetFlags(0)
	case opts.Debug || len(opts.Verbose) > 1:
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	default:
		log.SetFlags(log.LstdFlags)
	}
}

// latestReading holds the most recent tempread.Result behind a lock so
// the Fan Governor's pull-based Run loop can read it synchronously
// instead of racing the push-based reader goroutine.
type latestReading struct {
	mu  sync.Mutex
	res tempread.Result
	has bool
}

func newLatestReading() *latestReading { return &latestReading{} }

func (l *latestReading) Store(res tempread.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.res = res
	l.has = true
}

// Source matches thermal.Governor.Run's pull signature: the hottest of
// the board and every configured disk reading, or ok=false before the
// first temperature poll completes.
func (l *latestReading) Source() (hottest, boardC float64, diskC map[string]float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.has {
		return 0, 0, nil, false
	}

	hottest = l.res.BoardC
	diskC = make(map[string]float64, len(l.res.DiskC))
	for dev, c := range l.res.DiskC {
		diskC[dev] = c
		hottest = math.Max(hottest, c)
	}
	return hottest, l.res.BoardC, diskC, true
}

func bridgeTemperature(ctx context.Context, in <-chan tempread.Result, out *latestReading) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-in:
			out.Store(res)
		}
	}
}

// bridgeNotifications drains the Event Router's and Fan Governor's
// outbound channels and forwards every notification they imply to the
// Notification Dispatcher. It is the only reader of any of these
// channels.
func bridgeNotifications(ctx context.Context, router *events.Router, governor *thermal.Governor, dispatcher *notify.Dispatcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-router.Out:
			for _, n := range notify.FromRouterEvent(evt) {
				dispatcher.Dispatch(n)
			}
		case lc := <-governor.LevelChanges:
			dispatcher.Dispatch(notify.FromLevelChange(lc))
		case ff := <-governor.FanFaults:
			dispatcher.Dispatch(notify.FromFanFault(ff))
		}
	}
}
