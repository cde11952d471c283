package routine

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

// Config defines the configurations for the dispatcher.
// Controllers expected to run in lockstep must share Interval, Epoch
// and Order.
type Config struct {
	Interval    time.Duration `yaml:"interval"`
	Epoch       time.Time     `yaml:"epoch"`
	StatusEvery uint64        `yaml:"status_every"`
	Order       []int8        `yaml:"order"`

	// OrderFile is a YAML file with the fields above.
	OrderFile string `yaml:"-"`
	// Firmware is the serial device the selected routines are sent to.
	Firmware string `yaml:"-"`

	resolved bool
}

var defaultConfig = Config{
	Interval:    fx.DefaultInterval,
	StatusEvery: 1,
}

var epochFlag epochValue

func init() {
	if val := os.Getenv("LOCKSTEP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.Interval = d
		}
	}
	if val := os.Getenv("LOCKSTEP_EPOCH"); val != "" {
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			defaultConfig.Epoch = t
		}
	}
	epochFlag.t = &defaultConfig.Epoch
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Tick interval.")
	flag.Var(&epochFlag, "epoch", "Start of tick 0 in RFC3339, defaults to start time.")
	flag.Uint64Var(&defaultConfig.StatusEvery, "status-every", defaultConfig.StatusEvery, "Publish status every N ticks, 0 to disable.")
	flag.StringVar(&defaultConfig.OrderFile, "order-file", defaultConfig.OrderFile, "YAML file with order table and clock settings.")
	flag.StringVar(&defaultConfig.Firmware, "firmware", defaultConfig.Firmware, "Serial device of the firmware, empty to disable.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadFile merges the settings present in a YAML file. Settings in the
// file take precedence as the file is what controllers share.
func (c *Config) LoadFile(fn string) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	return c.Parse(data)
}

// Parse merges YAML settings.
func (c *Config) Parse(data []byte) error {
	var fileConf Config
	if err := yaml.Unmarshal(data, &fileConf); err != nil {
		return fmt.Errorf("invalid order file: %v", err)
	}
	if fileConf.Interval < 0 {
		return fmt.Errorf("invalid interval %s", fileConf.Interval)
	}
	if fileConf.Interval > 0 {
		c.Interval = fileConf.Interval
	}
	if !fileConf.Epoch.IsZero() {
		c.Epoch = fileConf.Epoch
	}
	if fileConf.StatusEvery > 0 {
		c.StatusEvery = fileConf.StatusEvery
	}
	if fileConf.Order != nil {
		c.Order = fileConf.Order
	}
	return nil
}

// Table builds the order table, DefaultOrder if Order is unset. An
// explicitly empty Order is rejected.
func (c *Config) Table() (*sequencer.Table, error) {
	if c.Order == nil {
		return sequencer.DefaultTable(), nil
	}
	return sequencer.NewTable(len(c.Order), c.Order)
}

// Resolve loads OrderFile and settles the clock. A zero Epoch becomes
// now so that the Dispatcher can report it. Only the first successful
// call has effect.
func (c *Config) Resolve(now time.Time) error {
	if c.resolved {
		return nil
	}
	if c.OrderFile != "" {
		if err := c.LoadFile(c.OrderFile); err != nil {
			return err
		}
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Epoch.IsZero() {
		c.Epoch = now
	}
	c.resolved = true
	return nil
}

// Clock is the tick clock.
func (c *Config) Clock() fx.Clock {
	return fx.Clock{Epoch: c.Epoch, Interval: c.Interval}
}

// StepMeta describes the clock for discovery. Resolve should be
// called first.
func (c *Config) StepMeta() (*l1.StepMeta, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	return &l1.StepMeta{Epoch: c.Epoch, Interval: c.Interval, Fingerprint: table.Fingerprint()}, nil
}

// NewDispatcher creates a Dispatcher from the config. Resolve should
// be called first.
func (c *Config) NewDispatcher(reg l1.Registrar, r Routine) (*Dispatcher, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	d := NewDispatcher(sequencer.New(table), r)
	d.Registrar = reg
	d.Clock = c.Clock()
	d.StatusEvery = c.StatusEvery
	return d, nil
}

// MustNewDispatcher resolves the config, creates a Dispatcher and
// fails on error.
func (c *Config) MustNewDispatcher(reg l1.Registrar, r Routine) *Dispatcher {
	if err := c.Resolve(time.Now()); err != nil {
		log.Fatalln(err)
	}
	d, err := c.NewDispatcher(reg, r)
	if err != nil {
		log.Fatalln(err)
	}
	return d
}

type epochValue struct {
	t *time.Time
}

func (v *epochValue) String() string {
	if v.t == nil || v.t.IsZero() {
		return ""
	}
	return v.t.Format(time.RFC3339)
}

func (v *epochValue) Set(s string) error {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*v.t = t
	return nil
}
