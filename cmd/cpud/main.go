// Command cpud is the cpu daemon: it accepts control connections and,
// for each one, re-executes itself as an in-mount-namespace launcher
// helper to run the requested command.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/u-root/cpu/launcher"
	"github.com/u-root/cpu/rpc"
	"github.com/u-root/cpu/session"
)

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cpud", flag.ContinueOnError)
	net := fs.String("net", "tcp", "control transport: tcp, unix, or vsock")
	port := fs.Int("port", 17010, "control port (ignored for unix)")
	uds := fs.String("uds", "/tmp/cpud.sock", "unix socket path, used when --net=unix")
	launchPort := fs.Int("launch", 0, "internal: re-exec as the in-namespace launcher helper, connecting to loopback PORT")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := log.New(os.Stderr, "cpud: ", 0)

	if *launchPort != 0 {
		if err := launcher.Run(*launchPort, logger); err != nil {
			logger.Printf("%v", err)
			return 1
		}
		return 0
	}

	self, err := os.Executable()
	if err != nil {
		logger.Printf("cannot locate own binary for launcher re-exec: %v", err)
		return 1
	}

	var addr string
	switch *net {
	case "unix":
		addr = *uds
	default:
		addr = ":" + strconv.Itoa(*port)
	}

	l, err := rpc.Listen(*net, addr)
	if err != nil {
		logger.Printf("listen on %s %s: %v", *net, addr, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "cpud: listening on %s %s\n", *net, addr)

	mgr := session.NewManager(self, logger)
	srv := &rpc.Server{Mgr: mgr, Log: logger}
	if err := srv.Serve(l); err != nil {
		logger.Printf("serve: %v", err)
		return 1
	}
	return 0
}
