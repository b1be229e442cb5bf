package sim

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/clktmr/pc64/drivers/link"
	"github.com/clktmr/pc64/drivers/sdcard"
	"github.com/clktmr/pc64/pi"
	"github.com/clktmr/pc64/pi/bank"
	"github.com/clktmr/pc64/sdservice"
	"github.com/clktmr/pc64/sim"
)

const usageString = `Run console scripts against the emulated cartridge.

Usage: %s [flags] [script...]

Scripts are read from stdin if none are given. The cartridge's SD card is
either served in process from -card, or by a separate 'pc64 sd' attached to
-link. In the latter case both must share the ROM memory through -psram.

`

var (
	flags = flag.NewFlagSet("sim", flag.ExitOnError)

	cardPath = flags.String("card", "", "SD card image or directory")
	config   = flags.String("config", "", "SD service config file")
	linkName = flags.String("link", "", "tty of a separate storage controller")
	baud     = flags.Int("baud", link.DefaultBaud, "baud rate of -link")
	psram    = flags.String("psram", "", "file shared as ROM memory")
	seed     = flags.Uint("seed", 0, "random register seed")
	verbose  = flags.Bool("v", false, "log cartridge activity")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "sim")
	flags.PrintDefaults()
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if (*cardPath == "") == (*linkName == "") {
		flags.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	cfg := sim.Config{
		PI:  pi.Config{Seed: uint32(*seed)},
		Log: log.New(io.Discard, "", 0),
	}
	if *verbose {
		cfg.Log = log.New(os.Stderr, "", log.Lmicroseconds)
	}

	if *psram != "" {
		a, err := bank.OpenDefaultShared(*psram)
		if err != nil {
			return err
		}
		defer a.Close()
		cfg.Array = a
	}

	if *linkName != "" {
		s, err := link.OpenSerial(*linkName, *baud)
		if err != nil {
			return err
		}
		cfg.Link = s
	} else {
		card, err := sdcard.Open(*cardPath)
		if err != nil {
			return err
		}
		if c, ok := card.(io.Closer); ok {
			defer c.Close()
		}
		cfg.Card = card

		cfg.SD = sdservice.DefaultConfig
		if *config != "" {
			if cfg.SD, err = sdservice.LoadConfig(*config); err != nil {
				return err
			}
		}
	}

	sys, err := sim.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	sysCtx, stopSys := context.WithCancel(gctx)
	g.Go(func() error { return sys.Run(sysCtx) })
	g.Go(func() error {
		defer stopSys()
		return runScripts(gctx, sim.NewScript(sys, os.Stdout), flags.Args())
	})

	err = g.Wait()
	if *verbose {
		log.Println(sys.Dispatcher.Stats())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runScripts(ctx context.Context, s *sim.Script, names []string) error {
	if len(names) == 0 {
		return s.Run(ctx, os.Stdin)
	}
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		err = s.Run(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
