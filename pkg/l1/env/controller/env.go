// Package controller sets up the registrars of an L1 controller from
// flags and LOCKSTEP_* environment variables.
package controller

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm"
	"github.com/robotalks/lockstep/pkg/l1/comm/mqtt"
	"github.com/robotalks/lockstep/pkg/l1/comm/stream"
	"github.com/robotalks/lockstep/pkg/l1/comm/websocket"
	"github.com/robotalks/lockstep/pkg/l1/env"
)

// ErrNoRegistrar is returned when neither MQTT nor a listener is set.
var ErrNoRegistrar = errors.New("at least one of MQTT broker and listener is required")

// Config describes the controller and where it registers.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL registers to a broker, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	// Listen accepts direct sessions, e.g. tcp://:7700 or ws://:7780/l1
	Listen string
}

var (
	defaultConfig = Config{
		MQTTBrokerURL: "mqtt://localhost:1883/lockstep/",
	}
	defaultLabels = env.Labels{}
)

func init() {
	if val, ok := os.LookupEnv("LOCKSTEP_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.Listen = os.Getenv("LOCKSTEP_LISTEN")
	if val := os.Getenv("LOCKSTEP_LABELS"); val != "" {
		if err := defaultLabels.Set(val); err != nil {
			glog.Warningf("LOCKSTEP_LABELS: %v", err)
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID, defaults to machine ID")
	flag.Var(defaultLabels, "label", "Controller labels KEY=VALUE,..., may be repeated")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "Accept direct sessions, tcp://host:port or ws://host:port/path")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetControllerType should be called in init with basic info about
// the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// NewConfig copies the default config, merging labels from flags into
// the meta.
func NewConfig() *Config {
	conf := defaultConfig
	labels := make(map[string]string, len(conf.Info.Meta.Labels)+len(defaultLabels))
	for key, val := range conf.Info.Meta.Labels {
		labels[key] = val
	}
	for key, val := range defaultLabels {
		labels[key] = val
	}
	if len(labels) > 0 {
		conf.Info.Meta.Labels = labels
	}
	return &conf
}

type serverFactory func(u *url.URL, hub *comm.Hub) fx.LoopAdder

var serverFactories = map[string]serverFactory{
	"tcp": func(u *url.URL, hub *comm.Hub) fx.LoopAdder {
		return &stream.Listener{Address: u.Host, Hub: hub}
	},
	"ws": func(u *url.URL, hub *comm.Hub) fx.LoopAdder {
		return &websocket.Server{Address: u.Host, Path: u.Path, Hub: hub}
	},
}

// ListenServer creates the server accepting sessions at listenURL for hub.
func ListenServer(listenURL string, hub *comm.Hub) (fx.LoopAdder, error) {
	u, err := url.Parse(listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("listen URL %q has no address", listenURL)
	}
	factory, ok := serverFactories[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unknown listen URL scheme: %q", u.Scheme)
	}
	return factory(u, hub), nil
}

// Env holds the registrars of a controller. Events sent to Registrar
// reach every MQTT and direct peer.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux
	Hub          *comm.Hub

	servers []fx.LoopAdder
}

// NewEnv creates Env from config. An empty ID defaults to the machine
// ID.
func (c *Config) NewEnv() (*Env, error) {
	if c.Info.Ref.ID == "" {
		c.Info.Ref.ID = env.MachineID()
	}
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("invalid controller %q", c.Info.Ref.Name())
	}
	e := &Env{Config: c, Registrar: &comm.RegistrarMux{}}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar: %w", err)
		}
		e.add(reg, c.MQTTBrokerURL)
	}
	if c.Listen != "" {
		hub := comm.NewHub()
		srv, err := ListenServer(c.Listen, hub)
		if err != nil {
			return nil, err
		}
		e.Hub = hub
		e.servers = append(e.servers, srv)
		e.add(hub, c.Listen)
	}
	if len(e.Registrar.Registrars) == 0 {
		return nil, ErrNoRegistrar
	}
	glog.Infof("controller %s registers to %v", c.Info.Ref.Name(), e.RegistryURLs)
	return e, nil
}

func (e *Env) add(reg l1.Registrar, registryURL string) {
	e.Registrar.Add(reg)
	e.RegistryURLs = append(e.RegistryURLs, registryURL)
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds registrars and servers. Commands nobody handles are
// rejected at the end of each iteration.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(e.servers...)
	loop.Add(&comm.UnsupportedCommands{})
}
