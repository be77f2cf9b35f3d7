package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AndrewLester/ntpproxy/internal/rpc"
	"github.com/AndrewLester/ntpproxy/pkg/ntpproxy"
	"github.com/sevlyar/go-daemon"
)

const (
	exitOK = iota
	exitConfig
	exitTransport
	exitPrivilege
)

type options struct {
	source  string
	delay   int64
	leap    string
	verbose bool
	config  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Getenv))
}

// run returns the process exit code; deferred cleanup of the status socket,
// the relay sockets and the daemon pid file happens before main exits.
func run(args []string, getenv func(string) string) int {
	var opts options
	var socket string
	var runDaemon, status, probe bool

	flags := flag.NewFlagSet("ntpproxy", flag.ContinueOnError)
	flags.StringVar(&opts.source, "source", "", "IPv4 address of the upstream NTP server.")
	flags.StringVar(&opts.source, "s", opts.source, "IPv4 address of the upstream NTP server.")
	flags.Int64Var(&opts.delay, "delay", ntpproxy.DefaultLead, "Seconds before the leap second the simulated clock starts at.")
	flags.Int64Var(&opts.delay, "d", opts.delay, "Seconds before the leap second the simulated clock starts at.")
	flags.StringVar(&opts.leap, "leap", "add", "Leap second to announce, add or del.")
	flags.StringVar(&opts.leap, "l", opts.leap, "Leap second to announce, add or del.")
	flags.BoolVar(&opts.verbose, "verbose", false, "Dump every packet.")
	flags.BoolVar(&opts.verbose, "v", opts.verbose, "Dump every packet.")
	flags.StringVar(&opts.config, "config", "", "Path to an ntpproxy config file.")
	flags.StringVar(&socket, "socket", rpc.DefaultSocket, "Path to the status socket.")
	flags.BoolVar(&runDaemon, "daemon", false, "Run ntpproxy as a daemon.")
	flags.BoolVar(&status, "status", false, "Show the status of a running ntpproxy.")
	flags.BoolVar(&probe, "probe", false, "Query the upstream server before relaying.")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	log.SetFlags(log.Ldate | log.Lmicroseconds)

	if status {
		return handleStatusUI(socket)
	}

	visited := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { visited[f.Name] = true })

	policy, err := buildPolicy(opts, visited, getenv)
	if err != nil {
		return fail(err)
	}
	if err := ntpproxy.CheckPrivilege(policy.Port); err != nil {
		return fail(err)
	}

	if runDaemon {
		d, err := daemonCtx.Reborn()
		if err != nil {
			if errors.Is(err, daemon.ErrWouldBlock) {
				if err := killDaemon(); err != nil {
					log.Print(err)
					return exitConfig
				}
				fmt.Println("Successfully stopped ntpproxy daemon.")
				return exitOK
			}
			log.Print("Unable to run: ", err)
			return exitConfig
		}
		if d != nil {
			fmt.Printf("Daemon process (%s, %d) started successfully.\n", daemonName, d.Pid)
			return exitOK
		}
		defer daemonCtx.Release()

		log.Print("- - - - - - - - - - - - - - -")
		log.Print("daemon started", os.Args)
	}

	if probe {
		if _, err := ntpproxy.Probe(policy, ntpproxy.ProbeTimeout); err != nil {
			return fail(err)
		}
	}

	now := ntpproxy.Now()
	window := ntpproxy.ComputeWindow(now, policy.Lead)
	log.Printf("Relaying %s with a %s leap second: clock shifted by %ds, simulated %s, leap at %s",
		policy.Source, policy.Polarity, window.Offset,
		window.Simulated(now).Format(time.RFC3339), window.LeapInstant().Format(time.RFC3339))

	relay, err := ntpproxy.Listen(policy, ntpproxy.NewLeapState(window, policy.Polarity))
	if err != nil {
		return fail(err)
	}
	defer relay.Close()
	log.Print("Listening on ", relay.LocalAddr())

	server := &rpc.NTPProxyRPCServer{Socket: socket, Relay: relay}
	if err := server.Listen(); err != nil {
		log.Printf("Status socket %s unavailable: %v", socket, err)
	} else {
		defer server.Close()
	}

	stop := closeOnSignal(relay)
	defer stop()

	if err := relay.Serve(); err != nil {
		return fail(err)
	}
	log.Print("Relay stopped")
	return exitOK
}

// buildPolicy layers the environment, the config file and then the flags
// that were set explicitly on top of the defaults.
func buildPolicy(opts options, visited map[string]bool, getenv func(string) string) (ntpproxy.Policy, error) {
	policy := ntpproxy.DefaultPolicy()
	if host := getenv("NTP_HOST"); host != "" {
		policy.Host = host
	}
	if port := getenv("NTP_PORT"); port != "" {
		policy.Port = port
	}
	if port := getenv("NTP_SOURCE_PORT"); port != "" {
		policy.SourcePort = port
	}

	if opts.config != "" {
		if err := ntpproxy.LoadConfig(opts.config, &policy); err != nil {
			return policy, err
		}
	}

	if visited["source"] || visited["s"] {
		policy.Source = opts.source
	}
	if visited["delay"] || visited["d"] {
		policy.Lead = opts.delay
	}
	if visited["leap"] || visited["l"] {
		polarity, err := ntpproxy.ParsePolarity(opts.leap)
		if err != nil {
			return policy, err
		}
		policy.Polarity = polarity
	}
	if visited["verbose"] || visited["v"] {
		policy.Verbose = opts.verbose
	}

	return policy, policy.Validate()
}

// closeOnSignal closes the relay on SIGINT or SIGTERM until stop is called.
func closeOnSignal(relay *ntpproxy.Relay) (stop func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-signals:
			log.Print("Received ", sig, ", shutting down")
			if err := relay.Close(); err != nil {
				log.Print("Error closing relay: ", err)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func exitCode(err error) int {
	var configErr *ntpproxy.ConfigError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &configErr):
		return exitConfig
	case errors.Is(err, ntpproxy.ErrPrivilege):
		return exitPrivilege
	}
	// Transport errors and an unusable upstream.
	return exitTransport
}

func fail(err error) int {
	log.Print(err)
	return exitCode(err)
}
