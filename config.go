package arena

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/units"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy names an allocation strategy.
type Strategy string

const (
	StrategyBump     Strategy = "bump"
	StrategyStack    Strategy = "stack"
	StrategyPool     Strategy = "pool"
	StrategyFreeList Strategy = "freelist"
	StrategyUnknown  Strategy = "unknown"
)

var supportedStrategies = []Strategy{StrategyBump, StrategyStack, StrategyPool, StrategyFreeList}

const (
	BackingHeap = "heap"
	BackingMmap = "mmap"
)

var supportedBackings = []string{BackingHeap, BackingMmap}

var (
	errUnknownStrategy = errors.New("unknown allocation strategy")
	errUnknownBacking  = errors.New("unknown arena backing")
	errChunkSize       = errors.New("pool chunk size must be positive and fit in the arena")
)

func (s Strategy) String() string { return string(s) }

// Set implements flag.Value.
func (s *Strategy) Set(v string) error {
	st := Strategy(strings.ToLower(strings.TrimSpace(v)))
	if !slices.Contains(supportedStrategies, st) {
		return errors.Wrapf(errUnknownStrategy, "%q, supported values: %v", v, supportedStrategies)
	}
	*s = st
	return nil
}

func (s *Strategy) UnmarshalYAML(value *yaml.Node) error {
	var v string
	if err := value.Decode(&v); err != nil {
		return err
	}
	return s.Set(v)
}

// StrategyOf reports which strategy a implements.
func StrategyOf(a Allocator) Strategy {
	switch v := a.(type) {
	case *Bump:
		return StrategyBump
	case *Stack:
		return StrategyStack
	case *Pool:
		return StrategyPool
	case *FreeList:
		return StrategyFreeList
	case *Synchronized:
		return StrategyOf(v.Unwrap())
	default:
		return StrategyUnknown
	}
}

// ByteSize is a size in bytes that parses human-readable values such as
// "64KiB", "1MB" or "4096".
type ByteSize int

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		*b = ByteSize(n)
		return nil
	}
	if n, err := units.ParseBase2Bytes(s); err == nil {
		*b = ByteSize(n)
		return nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return errors.Wrapf(err, "invalid byte size %q", s)
	}
	*b = ByteSize(n)
	return nil
}

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

func (b ByteSize) MarshalYAML() (interface{}, error) {
	return int(b), nil
}

// Config describes an allocator.
type Config struct {
	Strategy  Strategy `yaml:"strategy"`
	TotalSize ByteSize `yaml:"total_size"`
	ChunkSize ByteSize `yaml:"chunk_size"`
	Alignment int      `yaml:"alignment"`
	Backing   string   `yaml:"backing"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Strategy:  StrategyFreeList,
		TotalSize: DefaultArenaSize,
		ChunkSize: 64,
		Alignment: DefaultAlignment,
		Backing:   BackingHeap,
	}
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix(f, "arena.")
}

func (cfg *Config) RegisterFlagsWithPrefix(f *flag.FlagSet, prefix string) {
	def := DefaultConfig()
	cfg.Strategy = def.Strategy
	cfg.TotalSize = def.TotalSize
	cfg.ChunkSize = def.ChunkSize

	f.Var(&cfg.Strategy, prefix+"strategy", fmt.Sprintf("Allocation strategy. Supported values: %v.", supportedStrategies))
	f.Var(&cfg.TotalSize, prefix+"total-size", "Size of the arena reserved on Init.")
	f.Var(&cfg.ChunkSize, prefix+"chunk-size", "Chunk size of the pool strategy. Ignored by other strategies.")
	f.IntVar(&cfg.Alignment, prefix+"alignment", def.Alignment, "Default alignment of allocations. Must be a power of two.")
	f.StringVar(&cfg.Backing, prefix+"backing", def.Backing, fmt.Sprintf("Where arena memory comes from. Supported values: %s.", strings.Join(supportedBackings, ", ")))
}

func (cfg *Config) Validate() error {
	if !slices.Contains(supportedStrategies, cfg.Strategy) {
		return errors.Wrapf(errUnknownStrategy, "%q, supported values: %v", cfg.Strategy, supportedStrategies)
	}
	if !slices.Contains(supportedBackings, cfg.Backing) {
		return errors.Wrapf(errUnknownBacking, "%q, supported values: %v", cfg.Backing, supportedBackings)
	}
	if !isPowerOfTwo(cfg.Alignment) {
		return errors.Wrapf(ErrInvalidAlignment, "alignment %d", cfg.Alignment)
	}
	if cfg.Strategy == StrategyPool && (cfg.ChunkSize <= 0 || cfg.ChunkSize > cfg.TotalSize) {
		return errors.Wrapf(errChunkSize, "chunk size %s, total size %s", cfg.ChunkSize, cfg.TotalSize)
	}
	return nil
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode arena config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid arena config")
	}
	return cfg, nil
}

// NewFromConfig builds an allocator from cfg. Options are applied after the ones
// derived from cfg. The allocator still needs Init.
func NewFromConfig(cfg Config, opts ...Option) (Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reserver := HeapReserver
	if cfg.Backing == BackingMmap {
		reserver = MmapReserver
	}
	opts = append([]Option{WithAlignment(cfg.Alignment), WithReserver(reserver)}, opts...)

	switch cfg.Strategy {
	case StrategyBump:
		return NewBump(int(cfg.TotalSize), opts...), nil
	case StrategyStack:
		return NewStack(int(cfg.TotalSize), opts...), nil
	case StrategyPool:
		return NewPool(int(cfg.TotalSize), int(cfg.ChunkSize), opts...), nil
	default:
		return NewFreeList(int(cfg.TotalSize), opts...), nil
	}
}
