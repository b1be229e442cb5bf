package sim

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clktmr/pc64/bridge"
	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/drivers/link"
	"github.com/clktmr/pc64/drivers/sdcard"
	"github.com/clktmr/pc64/pi"
	"github.com/clktmr/pc64/pi/bank"
	"github.com/clktmr/pc64/pi/dma"
	"github.com/clktmr/pc64/sdservice"
)

// BackupTimeout bounds the save backup on shutdown.
const BackupTimeout = 5 * time.Second

type Config struct {
	// Card is served by an in-process storage controller. It's ignored if
	// Link is set.
	Card sdcard.Card
	SD   sdservice.Config

	// Link connects to a storage controller running elsewhere, e.g. the sd
	// command attached to a pty.
	Link link.Port

	// Array holds the ROM. If nil, an array private to the system is used.
	Array *bank.Array

	PI         pi.Config
	DMALatency int
	Log        *log.Logger
}

// System is a complete cartridge: both controllers, the shared memory array
// and a console to drive it.
type System struct {
	Bus        *Bus
	Console    *Console
	State      *cart.State
	Array      *bank.Array
	Dispatcher *pi.Dispatcher
	Bridge     *bridge.Controller
	Service    *sdservice.Service

	link   link.Port
	sdLink link.Port
	log    *log.Logger
}

func sublogger(l *log.Logger, prefix string) *log.Logger {
	return log.New(l.Writer(), l.Prefix()+prefix, l.Flags())
}

func New(cfg Config) (*System, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &System{
		Bus:   NewBus(),
		State: cart.NewState(),
		Array: cfg.Array,
		log:   logger,
	}
	if s.Array == nil {
		s.Array = bank.NewDefaultArray()
	}
	s.Console = NewConsole(s.Bus)

	busPort := s.Array.Port()
	banks := bank.NewResolver(bank.DefaultTable, busPort)
	s.Dispatcher = pi.NewDispatcher(s.Bus, dma.New(busPort, cfg.DMALatency), banks, s.State, cfg.PI)

	s.link = cfg.Link
	if s.link == nil {
		if cfg.Card == nil {
			return nil, errors.New("neither card nor link configured")
		}
		s.link, s.sdLink = link.Pipe(link.DefaultDepth)
		s.Service = sdservice.New(cfg.Card, s.sdLink, s.Array.Port(), cfg.SD, sublogger(logger, "sd: "))
	}
	s.Bridge = bridge.New(s.State, s.link, sublogger(logger, "bus: "))
	return s, nil
}

// Reset emulates the console's reset button: the save memory is backed up and
// the bus interface restarts.
func (s *System) Reset() {
	s.Bridge.RequestBackup()
	s.Dispatcher.RequestRestart()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Run runs all parts of the cartridge until ctx is done or one of them fails.
// On the way out the save memory is backed up.
func (s *System) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	dispatched := make(chan struct{})

	g.Go(func() error {
		defer close(dispatched)
		return ignoreCanceled(s.Dispatcher.Loop(busCtx))
	})

	g.Go(func() error {
		err := s.Bridge.Run(gctx)

		s.Bus.Close()
		stopBus()
		<-dispatched

		bctx, cancel := context.WithTimeout(context.Background(), BackupTimeout)
		if err := s.Bridge.BackupSave(bctx); err != nil {
			s.log.Print("backup on shutdown: ", err)
		}
		cancel()

		// Lets the storage controller drain the link and stop.
		s.link.Close()
		return ignoreCanceled(err)
	})

	if s.Service != nil {
		g.Go(func() error {
			err := s.Service.Run(context.Background())
			s.sdLink.Close()
			if gctx.Err() != nil && !errors.Is(err, sdservice.ErrLoadFailed) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
