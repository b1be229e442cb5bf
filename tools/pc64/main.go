package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/clktmr/pc64/tools/mkimage"
	"github.com/clktmr/pc64/tools/sd"
	"github.com/clktmr/pc64/tools/sim"
)

type command struct {
	name    string
	summary string
	main    func(args []string)
}

var commands = []command{
	{"sim", "run console scripts against the emulated cartridge", sim.Main},
	{"sd", "serve an SD card to a cartridge over a serial link", sd.Main},
	{"mkimage", "create, fill and list SD card images", mkimage.Main},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "pc64 emulates a PI bus cartridge with an SD card slot on the host.\n\n")
	fmt.Fprintf(out, "Usage:\n\n\t%s <command> [arguments]\n\nThe commands are:\n\n", os.Args[0])
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "\t%s\t%s\n", c.name, c.summary)
	}
	w.Flush()
	fmt.Fprintf(out, "\nRun '%s <command> -h' for the flags of a command.\n", os.Args[0])
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	c, ok := lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
	c.main(flag.Args())
}
