// Command forge runs the authoritative game server: it reads (or creates)
// config.toml, starts the simulation and network listener, and brings up
// the operator console.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironfoundry/forge/server"
	"github.com/ironfoundry/forge/server/console"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to the operator configuration file")
	host := flag.String("host", "", "listen host, overriding Network.Address")
	port := flag.String("port", "", "listen port, overriding Network.Address")
	saveDir := flag.String("save-dir", "", "world save folder, overriding World.Folder")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	uc, err := server.ReadUserConfig(*configPath)
	if err != nil {
		log.Error("read configuration", "error", err)
		return 1
	}
	if *host != "" || *port != "" {
		h, p, _ := net.SplitHostPort(uc.Network.Address)
		if *host != "" {
			h = *host
		}
		if *port != "" {
			p = *port
		}
		uc.Network.Address = net.JoinHostPort(h, p)
	}
	if *saveDir != "" {
		uc.World.Folder = *saveDir
	}
	conf, err := uc.Config(log)
	if err != nil {
		log.Error("build configuration", "error", err)
		return 1
	}

	srv, err := conf.New()
	if err != nil {
		log.Error("construct server", "error", err)
		return 1
	}
	if err := srv.Listen(); err != nil {
		log.Error("listen", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	con := console.New(srv, log)
	go con.Run(ctx)

	select {
	case <-con.Stopped():
		stop()
	case <-ctx.Done():
	}

	if err := <-runErr; err != nil {
		log.Error("server stopped with error", "error", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, "forge: shut down cleanly")
	return 0
}
