package sim

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
)

var ErrUsage = errors.New("usage")

// Script drives a System's console with line based commands. Empty lines and
// lines starting with '#' are ignored. Arguments are split like a shell does.
//
//	boot                   read the bus configuration and ROM header
//	detect                 check for the register window
//	load TITLE             load a ROM from the SD card
//	read SECTOR [COUNT]    read raw sectors
//	print TEXT...          write to the UART
//	sram read OFF N        read save memory
//	sram write OFF HEX     write save memory
//	rom OFF N              read the ROM domain
//	seed VALUE             reseed the random register
//	random N               read N random halfwords
//	savetype               read the negotiated save type
//	reset                  press reset, backing up save memory
//	sleep DURATION         wait
type Script struct {
	sys *System
	out io.Writer
}

func NewScript(sys *System, out io.Writer) *Script {
	return &Script{sys: sys, out: out}
}

// Run executes all commands read from r and stops at the first failing one.
func (s *Script) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		args, err := shellwords.Split(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
		if err := s.Exec(ctx, args...); err != nil {
			return fmt.Errorf("line %d: %s: %w", lineno, args[0], err)
		}
	}
	return sc.Err()
}

// Exec executes a single command.
func (s *Script) Exec(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return nil
	}
	c := s.sys.Console
	cmd, args := args[0], args[1:]
	switch cmd {
	case "boot":
		speed, hdr, err := c.Boot()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "bus speed %#08x\n", speed)
		fmt.Fprint(s.out, hex.Dump(hdr))

	case "detect":
		if err := c.Detect(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "cartridge detected")

	case "load":
		if len(args) != 1 {
			return fmt.Errorf("%w: load TITLE", ErrUsage)
		}
		if err := c.LoadROM(ctx, args[0]); err != nil {
			return err
		}
		t, err := c.SaveType()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "loaded %s, save type %v\n", args[0], t)

	case "read":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: read SECTOR [COUNT]", ErrUsage)
		}
		sector, err := parseUint(args[0], 64)
		if err != nil {
			return err
		}
		count := uint64(1)
		if len(args) == 2 {
			if count, err = parseUint(args[1], 8); err != nil {
				return err
			}
		}
		data, err := c.ReadSectors(ctx, sector, int(count))
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, hex.Dump(data))

	case "print":
		return c.Print(strings.Join(args, " ") + "\n")

	case "sram":
		return s.sram(args)

	case "rom":
		if len(args) != 2 {
			return fmt.Errorf("%w: rom OFF N", ErrUsage)
		}
		off, n, err := parseRange(args)
		if err != nil {
			return err
		}
		data, err := c.ReadROM(off, n)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, hex.Dump(data))

	case "seed":
		if len(args) != 1 {
			return fmt.Errorf("%w: seed VALUE", ErrUsage)
		}
		v, err := parseUint(args[0], 32)
		if err != nil {
			return err
		}
		return c.Seed(uint32(v))

	case "random":
		if len(args) != 1 {
			return fmt.Errorf("%w: random N", ErrUsage)
		}
		n, err := parseUint(args[0], 16)
		if err != nil {
			return err
		}
		v, err := c.Random(int(n))
		if err != nil {
			return err
		}
		for _, x := range v {
			fmt.Fprintf(s.out, "%04x\n", x)
		}

	case "savetype":
		t, err := c.SaveType()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, t)

	case "reset":
		s.sys.Reset()

	case "sleep":
		if len(args) != 1 {
			return fmt.Errorf("%w: sleep DURATION", ErrUsage)
		}
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return err
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}

	default:
		return fmt.Errorf("%w: unknown command", ErrUsage)
	}
	return nil
}

func (s *Script) sram(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: sram read OFF N | sram write OFF HEX", ErrUsage)
	}
	c := s.sys.Console
	switch args[0] {
	case "read":
		off, n, err := parseRange(args[1:])
		if err != nil {
			return err
		}
		data, err := c.ReadSRAM(off, n)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, hex.Dump(data))
	case "write":
		off, err := parseUint(args[1], 32)
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(args[2])
		if err != nil {
			return err
		}
		return c.WriteSRAM(uint32(off), data)
	default:
		return fmt.Errorf("%w: sram read|write", ErrUsage)
	}
	return nil
}

func parseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(s, 0, bits)
}

func parseRange(args []string) (off uint32, n int, err error) {
	o, err := parseUint(args[0], 32)
	if err != nil {
		return 0, 0, err
	}
	l, err := parseUint(args[1], 16)
	if err != nil {
		return 0, 0, err
	}
	return uint32(o), int(l), nil
}
