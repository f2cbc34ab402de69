package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "dump":
		cmdDump(os.Args[2:])
	case "probe":
		cmdProbe(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: h3dump dump [-chunk N] [-config file.toml] [file]")
	fmt.Fprintln(os.Stderr, "       h3dump probe [-insecure] [-config file.toml] <https-url>")
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	chunk := fs.Int("chunk", 4096, "feed the decoder this many bytes at a time")
	configPath := fs.String("config", "", "TOML configuration file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.apply()

	var in io.Reader = os.Stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			log.WithError(err).Fatal("Failed to open input")
		}
		defer f.Close()
		in = f
	}
	if err := runDump(in, *chunk, cfg.options()); err != nil {
		log.WithError(err).Fatal("Dump failed")
	}
}

func cmdProbe(args []string) {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	insecure := fs.Bool("insecure", false, "skip TLS certificate verification")
	configPath := fs.String("config", "", "TOML configuration file")
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.apply()

	if err := runProbe(fs.Arg(0), *insecure, cfg.options()); err != nil {
		log.WithError(err).Fatal("Probe failed")
	}
}
