package sdservice

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clktmr/pc64/cart"
	"github.com/clktmr/pc64/pi/bank"
)

// DefaultChunkSize is the size of a single write into the memory array while
// loading a ROM. Bank offsets must be a multiple of it.
const DefaultChunkSize = 4096

type Config struct {
	// SaveTypes selects the save type by game code, either the full four
	// character code of the ROM header or its two character unique code.
	SaveTypes map[string]cart.SaveType `json:"save_types"`

	// DefaultSaveType is used for ROMs not found in SaveTypes.
	DefaultSaveType cart.SaveType `json:"default_save_type"`

	ChunkSize int `json:"chunk_size"`

	// Banks describes the memory array the ROM is loaded into.
	Banks bank.Table `json:"-"`
}

// DefaultConfig is used for all fields not set in a config file.
var DefaultConfig = Config{
	DefaultSaveType: cart.SaveEEPROM4k,
	ChunkSize:       DefaultChunkSize,
	Banks:           bank.DefaultTable,
}

// LoadConfig reads a JSON config file on top of DefaultConfig.
func LoadConfig(name string) (Config, error) {
	cfg := DefaultConfig
	data, err := os.ReadFile(name)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrChunkSize, c.ChunkSize)
	}
	for _, b := range c.Banks {
		if b.Offset%uint32(c.ChunkSize) != 0 {
			return fmt.Errorf("%w: %d", ErrChunkSize, c.ChunkSize)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if len(c.Banks) == 0 {
		c.Banks = bank.DefaultTable
	}
}

// SaveType returns the save type for the ROM with header h.
func (c *Config) SaveType(h *Header) cart.SaveType {
	if t, ok := c.SaveTypes[h.GameCode]; ok {
		return t
	}
	if t, ok := c.SaveTypes[h.UniqueCode()]; ok {
		return t
	}
	return c.DefaultSaveType
}
