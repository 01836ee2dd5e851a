// Command capabi-demo wires the CapABI packages into a runnable daemon:
// a process registry, the read-only introspect gRPC service, and
// (optionally) the diagfs diagnostic FUSE mount, all pointed at the
// same state.Registry.
//
// Flag set, log setup in app.Before, signal-driven exit handler, systemd
// readiness notification, and optional cpu/memory profiling.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	systemd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	service "gopkg.in/hlandau/service.v1"

	"github.com/neveragainde/cloudabi-utils/diagfs"
	"github.com/neveragainde/cloudabi-utils/introspect"
	"github.com/neveragainde/cloudabi-utils/rand"
	"github.com/neveragainde/cloudabi-utils/state"
)

const usage = `capabi-demo

capabi-demo is a reference host for the CapABI capability-oriented
emulator: it keeps a registry of emulated processes, each with its own
handle table, and exposes their live state over a read-only gRPC
service (and, optionally, a diagnostic FUSE mount).
`

// version is set at build time via an ldflags-populated global.
var version string

// exitHandler catches the usual termination signals, stops the
// auxiliary servers, and only then lets the process die.
func exitHandler(
	signalChan chan os.Signal,
	introspectSrv *introspect.Server,
	diagfsSrv *diagfs.Server,
	prof interface{ Stop() },
) {
	s := <-signalChan
	logrus.Warnf("capabi-demo caught signal: %s", s)
	logrus.Info("stopping (gracefully) ...")

	systemd.SdNotify(false, systemd.SdNotifyStopping)

	if s == syscall.SIGABRT || s == syscall.SIGSEGV {
		stacktrace := make([]byte, 32768)
		length := runtime.Stack(stacktrace, true)
		logrus.Warnf("\n\n%s\n", string(stacktrace[:length]))
	}

	if introspectSrv != nil {
		introspectSrv.Stop()
	}
	if diagfsSrv != nil {
		if err := diagfsSrv.Destroy(); err != nil {
			logrus.Warnf("failed to unmount diagfs: %v", err)
		}
	}
	if prof != nil {
		prof.Stop()
	}

	logrus.Info("exiting ...")
	os.Exit(0)
}

// runProfiler starts cpu or memory profiling; the two are mutually
// exclusive, and NoShutdownHook is passed so our own signal handler —
// not the profile package's — decides when to stop.
func runProfiler(ctx *cli.Context) (interface{ Stop() }, error) {
	cpuOn := ctx.Bool("cpu-profiling")
	memOn := ctx.Bool("memory-profiling")

	if cpuOn && memOn {
		return nil, fmt.Errorf("unsupported parameter combination: cpu and memory profiling")
	}
	if !cpuOn && !memOn {
		return nil, nil
	}
	if cpuOn {
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	}
	return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
}

func setupLogging(ctx *cli.Context) error {
	if path := ctx.GlobalString("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", path, err)
		}
		logrus.SetOutput(f)
		log.SetOutput(f)
	} else {
		logrus.SetOutput(os.Stderr)
		log.SetOutput(os.Stderr)
	}

	if ctx.GlobalString("log-format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true})
	}

	switch lvl := ctx.GlobalString("log-level"); lvl {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info", "":
		logrus.SetLevel(logrus.InfoLevel)
	case "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	default:
		return fmt.Errorf("log-level option %q not recognized", lvl)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "capabi-demo"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "introspect-addr",
			Value: "127.0.0.1:50099",
			Usage: "listen address for the read-only introspection gRPC service",
		},
		cli.StringFlag{
			Name:  "diagfs-mountpoint",
			Value: "",
			Usage: "mount the diagnostic FUSE filesystem at this path (default: disabled)",
		},
		cli.UintFlag{
			Name:  "demo-pid",
			Value: uint(os.Getpid()),
			Usage: "process id to pre-register in the registry for the demo to have something to show",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path or empty string for stderr output",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format; must be json or text",
		},
		cli.BoolFlag{
			Name:   "cpu-profiling",
			Usage:  "enable cpu-profiling data collection",
			Hidden: true,
		},
		cli.BoolFlag{
			Name:   "memory-profiling",
			Usage:  "enable memory-profiling data collection",
			Hidden: true,
		},
	}

	app.Before = func(ctx *cli.Context) error {
		return setupLogging(ctx)
	}

	app.Action = func(ctx *cli.Context) error {
		logrus.Info("initiating capabi-demo ...")

		registry := state.NewRegistry()
		if _, err := registry.Create(uint32(ctx.Uint("demo-pid")), rand.New()); err != nil {
			return fmt.Errorf("pre-registering demo process: %w", err)
		}

		lis, err := net.Listen("tcp", ctx.String("introspect-addr"))
		if err != nil {
			return fmt.Errorf("listening on %s: %w", ctx.String("introspect-addr"), err)
		}
		introspectSrv := introspect.NewServer(registry)
		go func() {
			if err := introspectSrv.Serve(lis); err != nil {
				logrus.Errorf("introspect server exited: %v", err)
			}
		}()
		logrus.Infof("introspect gRPC listening on %s", ctx.String("introspect-addr"))

		var diagfsSrv *diagfs.Server
		if mountpoint := ctx.String("diagfs-mountpoint"); mountpoint != "" {
			diagfsSrv = diagfs.NewServer(mountpoint, registry)
			go func() {
				if err := diagfsSrv.Run(); err != nil {
					logrus.Errorf("diagfs server exited: %v", err)
				}
			}()
			logrus.Infof("diagfs mounted at %s", mountpoint)
		}

		prof, err := runProfiler(ctx)
		if err != nil {
			return err
		}

		exitChan := make(chan os.Signal, 1)
		signal.Notify(exitChan,
			syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGSEGV, syscall.SIGQUIT, syscall.SIGABRT)
		go exitHandler(exitChan, introspectSrv, diagfsSrv, prof)

		systemd.SdNotify(false, systemd.SdNotifyReady)
		logrus.Info("ready ...")

		// service.Main owns the remainder of this process's lifecycle:
		// pidfile management and optional fork-to-background.
		// smgr.SetStarted lets it know the services above are already
		// up; Start blocks on the stop channel so capabi-demo keeps
		// running until exitHandler (above) or an external stop
		// request tears it down.
		service.Main(&service.Info{
			Name:        "capabi-demo",
			Description: "CapABI reference emulator host",
			Start: func(smgr service.Manager) error {
				smgr.SetStarted()
				smgr.SetStatus(fmt.Sprintf("serving introspect on %s", ctx.String("introspect-addr")))
				<-smgr.StopChan()
				return nil
			},
			Stop: func() error {
				exitChan <- syscall.SIGTERM
				time.Sleep(2 * time.Second)
				return nil
			},
		})

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
