// Package connector configures how L2 tools reach controllers, from
// flags and LOCKSTEP_* environment variables.
package connector

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm"
	"github.com/robotalks/lockstep/pkg/l1/comm/mqtt"
	"github.com/robotalks/lockstep/pkg/l1/comm/stream"
	"github.com/robotalks/lockstep/pkg/l1/comm/websocket"
	"github.com/robotalks/lockstep/pkg/l1/env"
)

// ErrRefRequired is returned by Connect through a registry without a
// full controller reference.
var ErrRefRequired = errors.New("controller type and id must be specified")

// Config selects the registry and the controller.
type Config struct {
	Ref l1.ControllerRef
	// Selector narrows discovery to controllers with these labels.
	Selector env.Labels

	// RegistryURL is an MQTT broker, mqtt://host:port/topic-prefix,
	// or the listener of one controller, tcp://host:port or
	// ws://host:port/path.
	RegistryURL string
}

var defaultConfig = Config{
	Selector:    env.Labels{},
	RegistryURL: "mqtt://localhost:1883/lockstep/",
}

func init() {
	for name, dst := range map[string]*string{
		"LOCKSTEP_TYPE":         &defaultConfig.Ref.Type,
		"LOCKSTEP_ID":           &defaultConfig.Ref.ID,
		"LOCKSTEP_REGISTRY_URL": &defaultConfig.RegistryURL,
	} {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "ctl-type", defaultConfig.Ref.Type, "Controller type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "ctl-id", defaultConfig.Ref.ID, "Controller ID to connect.")
	flag.Var(defaultConfig.Selector, "select", "Only discover controllers with labels KEY=VALUE,...")
	flag.StringVar(&defaultConfig.RegistryURL, "registry", defaultConfig.RegistryURL, "Registry URL, MQTT broker or a controller listener.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig copies the default config.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Selector = make(env.Labels, len(defaultConfig.Selector))
	for key, val := range defaultConfig.Selector {
		conf.Selector[key] = val
	}
	return &conf
}

type connectorFactory func(c *Config, u *url.URL) (l1.Connector, error)

var connectorFactories = map[string]connectorFactory{
	"mqtt": newMQTTConnector,
	"ssl":  newMQTTConnector,
	"tcp": func(c *Config, u *url.URL) (l1.Connector, error) {
		return &comm.DirectConnector{Address: u.Host, Ref: c.Ref, Dial: stream.Dialer(u.Host)}, nil
	},
	"ws":  newWebsocketConnector,
	"wss": newWebsocketConnector,
}

func newMQTTConnector(c *Config, _ *url.URL) (l1.Connector, error) {
	return mqtt.NewConnector(c.RegistryURL)
}

func newWebsocketConnector(c *Config, _ *url.URL) (l1.Connector, error) {
	return &comm.DirectConnector{Address: c.RegistryURL, Ref: c.Ref, Dial: websocket.Dialer(c.RegistryURL)}, nil
}

// NewConnector creates the Connector for the RegistryURL scheme.
func (c *Config) NewConnector() (l1.Connector, error) {
	u, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	factory, ok := connectorFactories[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unknown registry URL scheme: %q", u.Scheme)
	}
	return factory(c, u)
}

// Connect connects the configured controller. A direct listener
// serves one controller, so Ref may be left empty for it.
func (c *Config) Connect(ctx context.Context) (l1.ControllerConn, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, err
	}
	if _, direct := connector.(*comm.DirectConnector); !direct && !c.Ref.IsValid() {
		return nil, ErrRefRequired
	}
	return connector.Connect(ctx, c.Ref)
}
