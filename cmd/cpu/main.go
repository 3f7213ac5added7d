// Command cpu dials a cpu daemon and runs a command on it, optionally
// exporting part of the local filesystem back to the remote side over
// 9P.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/u-root/cpu/client"
)

func main() {
	log.SetFlags(0)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cpu", flag.ContinueOnError)
	net := fs.String("net", "tcp", "control transport: tcp, unix, or vsock")
	port := fs.Int("port", 17010, "control port (ignored for unix)")
	namespace := fs.String("namespace", "", "namespace spec: part(:part)*, part is target or target=source")
	tty := fs.Bool("tty", false, "allocate a remote tty")
	fstabFile := fs.String("fs-tab", "", "fstab-syntax file of additional mounts")
	tmpMnt := fs.String("tmp-mnt", "/tmp", "mount point prefix for the forwarded 9P namespace")
	uid := fs.Int("uid", os.Geteuid(), "remote uid")
	gid := fs.Int("gid", os.Getegid(), "remote gid")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cpu [flags] HOST [PROGRAM] -- [ARGS...]")
		return 1
	}
	host := rest[0]
	rest = rest[1:]

	program := os.Getenv("SHELL")
	if program == "" {
		program = "/bin/sh"
	}
	var cmdArgs []string
	if len(rest) > 0 && rest[0] != "--" {
		program = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 && rest[0] == "--" {
		cmdArgs = rest[1:]
	} else {
		cmdArgs = rest
	}

	var addr string
	switch *net {
	case "unix":
		addr = host
	default:
		addr = host + ":" + strconv.Itoa(*port)
	}

	logger := log.New(os.Stderr, "cpu: ", 0)
	code, err := client.Run(client.Config{
		Network:   *net,
		Address:   addr,
		Program:   program,
		Args:      cmdArgs,
		Namespace: *namespace,
		FsTabFile: *fstabFile,
		TmpMnt:    *tmpMnt,
		TTY:       *tty,
		UID:       uint32(*uid),
		GID:       uint32(*gid),
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Log:       logger,
	})
	if err != nil {
		logger.Printf("%v", err)
		return 1
	}
	return code
}
