// Command pulsenatived is the daemon entrypoint: it loads
// configuration, the shared auth cookie, and a null mixer core, then
// accepts native-protocol connections on a Unix domain socket (or TCP,
// if configured) until signaled to stop.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a-darwish/pulseaudio/internal/config"
	"github.com/a-darwish/pulseaudio/internal/cookie"
	"github.com/a-darwish/pulseaudio/internal/logging"
	"github.com/a-darwish/pulseaudio/internal/nullmixer"
	"github.com/a-darwish/pulseaudio/internal/session"
)

func main() {
	var (
		configPath  = pflag.StringP("config-file", "c", "", "YAML configuration file.")
		listenAddr  = pflag.StringP("listen-address", "l", "", "Override the configured listen address.")
		cookiePath  = pflag.StringP("cookie-file", "k", "", "Override the configured cookie file path.")
		publicFlag  = pflag.BoolP("public", "p", false, "Pre-authorize every connection without requiring AUTH (overrides config).")
		logLevel    = pflag.StringP("log-level", "v", "", "Override the configured log level (debug, info, warn, error).")
		help        = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - a native-protocol audio dispatcher daemon.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: pulsenatived [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddress = *listenAddr
	}
	if pflag.CommandLine.Changed("public") {
		cfg.Public = *publicFlag
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logging.SetLevel(cfg.LogLevel)
	log := logging.Logger()

	path := *cookiePath
	if path == "" {
		path = cfg.CookiePath
	}
	secret, err := cookie.Load(path)
	if err != nil {
		log.Fatal("failed to load authentication cookie", "err", err)
	}

	core := nullmixer.New("null-sink", "null-source")
	listener := session.NewListener(secret, cfg.Public, core, cfg.Buffers)
	listener.OnExit = func() {
		log.Info("client requested EXIT")
	}

	if cfg.ListenNetwork == "unix" {
		os.Remove(cfg.ListenAddress)
	}
	ln, err := net.Listen(cfg.ListenNetwork, cfg.ListenAddress)
	if err != nil {
		log.Fatal("failed to listen", "network", cfg.ListenNetwork, "address", cfg.ListenAddress, "err", err)
	}
	log.Info("listening", "network", cfg.ListenNetwork, "address", cfg.ListenAddress, "public", cfg.Public)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		ln.Close()
		listener.Shutdown()
		os.Exit(0)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Debug("accept loop stopped", "err", err)
			return
		}
		listener.Accept(conn)
	}
}
