package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/pi"
)

var (
	ErrTimeout  = errors.New("timeout waiting for cartridge")
	ErrNoCart   = errors.New("cartridge not detected")
	ErrTooLarge = errors.New("request exceeds staging buffer")
)

// DefaultTimeout bounds the wait for the storage controller.
const DefaultTimeout = 10 * time.Second

// maxUART is the largest byte count of a single UART register write.
const maxUART = 0xfff

// Console issues bus accesses the way software running on the console does.
// Every access latches an address followed by sequential halfword reads or
// writes. A Console must be used by a single goroutine.
type Console struct {
	bus     *Bus
	Timeout time.Duration
}

func NewConsole(bus *Bus) *Console {
	return &Console{bus: bus, Timeout: DefaultTimeout}
}

// ReadHalfs reads n halfwords starting at addr.
func (c *Console) ReadHalfs(addr uint32, n int) ([]uint16, error) {
	if err := c.bus.latch(addr); err != nil {
		return nil, err
	}
	v := make([]uint16, n)
	for i := range v {
		var err error
		if v[i], err = c.bus.read(addr + uint32(i)*2); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// WriteHalfs writes v starting at addr.
func (c *Console) WriteHalfs(addr uint32, v ...uint16) error {
	if err := c.bus.latch(addr); err != nil {
		return err
	}
	for _, h := range v {
		if err := c.bus.write(h); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes reads n bytes starting at the even address addr.
func (c *Console) ReadBytes(addr uint32, n int) ([]byte, error) {
	v, err := c.ReadHalfs(addr, (n+1)/2)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(v)*2)
	for _, h := range v {
		b = append(b, byte(h>>8), byte(h))
	}
	return b[:n], nil
}

// WriteBytes writes b starting at the even address addr. An odd length is
// padded with a zero byte.
func (c *Console) WriteBytes(addr uint32, b []byte) error {
	v := make([]uint16, (len(b)+1)/2)
	for i, x := range b {
		v[i/2] |= uint16(x) << (8 - 8*(i&1))
	}
	return c.WriteHalfs(addr, v...)
}

func (c *Console) ReadReg(reg uint32) (uint32, error) {
	v, err := c.ReadHalfs(pi.ControlStart+reg, 2)
	if err != nil {
		return 0, err
	}
	return uint32(v[0])<<16 | uint32(v[1]), nil
}

func (c *Console) WriteReg(reg, v uint32) error {
	return c.WriteHalfs(pi.ControlStart+reg, uint16(v>>16), uint16(v))
}

// Boot reads the bus configuration word and the rest of the ROM header, like
// the boot code does.
func (c *Console) Boot() (busSpeed uint32, header []byte, err error) {
	v, err := c.ReadHalfs(pi.HandshakeAddr, 0x20)
	if err != nil {
		return 0, nil, err
	}
	busSpeed = uint32(v[0])<<16 | uint32(v[1])
	header = make([]byte, 0, 0x40)
	header = append(header, byte(v[0]>>8), byte(v[0]), byte(v[1]>>8), byte(v[1]))
	for _, h := range v[2:] {
		header = append(header, byte(h>>8), byte(h))
	}
	return busSpeed, header, nil
}

// Detect checks for the cartridge's register window.
func (c *Console) Detect() error {
	magic, err := c.ReadReg(pi.RegMagic)
	if err != nil {
		return err
	}
	if magic != pi.Magic {
		return fmt.Errorf("%w: magic %#08x", ErrNoCart, magic)
	}
	return nil
}

// Busy reads the storage busy flag.
func (c *Console) Busy() (bool, error) {
	v, err := c.ReadReg(pi.RegBusy)
	return v&1 != 0, err
}

// Wait polls the busy flag until the storage controller answered.
func (c *Console) Wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	for {
		busy, err := c.Busy()
		if err != nil || !busy {
			return err
		}
		if ctx.Err() != nil {
			return ErrTimeout
		}
		runtime.Gosched()
	}
}

// ReadSectors reads count sectors from the SD card through the staging
// buffer.
func (c *Console) ReadSectors(ctx context.Context, sector uint64, count int) ([]byte, error) {
	if count*512 > cart.StagingSize {
		return nil, fmt.Errorf("%w: %d sectors", ErrTooLarge, count)
	}
	if err := c.WriteReg(pi.RegCount, uint32(count)); err != nil {
		return nil, err
	}
	if err := c.WriteReg(pi.RegSectorHi, uint32(sector>>32)); err != nil {
		return nil, err
	}
	if err := c.WriteReg(pi.RegSectorLo, uint32(sector)); err != nil {
		return nil, err
	}
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}
	return c.ReadBytes(pi.BaseStart, max(count, 1)*512)
}

// LoadROM selects the ROM file title on the SD card and waits until it was
// loaded.
func (c *Console) LoadROM(ctx context.Context, title string) error {
	if len(title) > cart.MaxTitleLen {
		return fmt.Errorf("%w: title of %d bytes", ErrTooLarge, len(title))
	}
	if err := c.WriteBytes(pi.BaseStart, []byte(title)); err != nil {
		return err
	}
	if err := c.WriteReg(pi.RegTitleLen, uint32(len(title))); err != nil {
		return err
	}
	return c.Wait(ctx)
}

// Print forwards s to the cartridge's diagnostic UART.
func (c *Console) Print(s string) error {
	for len(s) > 0 {
		n := min(len(s), maxUART)
		if err := c.WriteBytes(pi.BaseStart, []byte(s[:n])); err != nil {
			return err
		}
		if err := c.WriteReg(pi.RegUART, uint32(n)); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}

func (c *Console) SaveType() (cart.SaveType, error) {
	v, err := c.ReadReg(pi.RegSaveType)
	return cart.SaveType(v), err
}

func (c *Console) Seed(seed uint32) error {
	return c.WriteReg(pi.RegSeed, seed)
}

func (c *Console) Random(n int) ([]uint16, error) {
	return c.ReadHalfs(pi.RandomStart, n)
}

// ReadSRAM reads n bytes of save memory at offset off of the SRAM domain.
func (c *Console) ReadSRAM(off uint32, n int) ([]byte, error) {
	return c.ReadBytes(pi.SRAMStart+off, n)
}

func (c *Console) WriteSRAM(off uint32, b []byte) error {
	return c.WriteBytes(pi.SRAMStart+off, b)
}

// ReadROM reads n bytes of the ROM domain at offset off. Reads at offset 0
// return the bus configuration word first, as the boot code sees it.
func (c *Console) ReadROM(off uint32, n int) ([]byte, error) {
	return c.ReadBytes(pi.ROMStart+off, n)
}
