package sd

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
	"github.com/clktmr/pc64/pi/bank"
	"github.com/clktmr/pc64/sdservice"
)

const usageString = `Serve an SD card to a cartridge over a serial link.

Usage: %s [flags] <card>

The card is a FAT image or a directory. Loaded ROMs are written to the
memory shared through -psram. With -pty a pseudo terminal is created and its
name printed, attach the bus side with 'pc64 sim -link'.

`

var (
	flags = flag.NewFlagSet("sd", flag.ExitOnError)

	tty    = flags.String("tty", "", "serial device of the link")
	usePTY = flags.Bool("pty", false, "create a pseudo terminal as link")
	baud   = flags.Int("baud", link.DefaultBaud, "baud rate of -tty")
	psram  = flags.String("psram", "psram.bin", "file shared as ROM memory")
	config = flags.String("config", "", "config file")
	chunk  = flags.Int("chunk", 0, "chunk size of ROM writes")
	stamp  = flags.Bool("t", false, "timestamp log lines")
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "sd")
	flags.PrintDefaults()
}

func openLink() (link.Port, error) {
	if *usePTY {
		p, err := link.NewPTY()
		if err != nil {
			return nil, err
		}
		fmt.Println(p.Name())
		return p, nil
	}
	s, err := link.OpenSerial(*tty, *baud)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func Main(args []string) {
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 || (*tty == "") == !*usePTY {
		flags.Usage()
		os.Exit(1)
	}

	if err := run(flags.Arg(0)); err != nil {
		log.Fatalln(err)
	}
}

// run serves card until interrupted or the link is closed. Everything opened
// is closed on return.
func run(cardPath string) error {
	cfg := sdservice.DefaultConfig
	if *config != "" {
		var err error
		if cfg, err = sdservice.LoadConfig(*config); err != nil {
			return err
		}
	}
	if *chunk != 0 {
		cfg.ChunkSize = *chunk
	}

	card, err := sdcard.Open(cardPath)
	if err != nil {
		return err
	}
	if c, ok := card.(io.Closer); ok {
		defer c.Close()
	}

	mem, err := bank.OpenDefaultShared(*psram)
	if err != nil {
		return err
	}
	defer mem.Close()

	port, err := openLink()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", 0)
	if *stamp {
		logger.SetFlags(log.Lmicroseconds)
	}
	svc := sdservice.New(card, port, mem.Port(), cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return svc.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return port.Close()
	})

	err = g.Wait()
	log.Printf("%+v", svc.Stats())
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
