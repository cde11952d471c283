// Package sh is the interactive shell talking to lockstep controllers.
// Command providers register with AddCmds in their init.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	l1env "github.com/robotalks/lockstep/pkg/l1/env"
	env "github.com/robotalks/lockstep/pkg/l1/env/connector"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// ErrNotConnected is reported by commands needing a controller.
var ErrNotConnected = errors.New("not connected")

// DiscoverTimeout bounds controller discovery.
const DiscoverTimeout = 5 * time.Second

// Shell wraps ishell with the current Session.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// Timeout bounds waiting for a command result.
	Timeout time.Duration

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

const shellKey = "$shell"

var (
	evalOnly   bool
	outputJSON bool
	timeout    = time.Second

	commands = []*ishell.Cmd{&DiscoverCmd, &ConnectCmd, &DisconnectCmd}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Run the command in arguments and exit.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print results in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Time to wait for a command result.")
}

// AddCmds registers commands, call it from init.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a Shell using flag settings.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithAutoConnect connects Config.Ref on Run when it's valid.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

func (s *Shell) updatePrompt() {
	name := "none"
	if s.Session != nil {
		name = s.Session.Ref.Name()
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", name))
}

// MustBeConnected wraps fn to fail without a Session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// FormatInfo renders ControllerInfo for display.
func FormatInfo(info l1.ControllerInfo) string {
	str := info.Ref.Name()
	if info.Meta.Description != "" {
		str += ": " + info.Meta.Description
	}
	if step := info.Meta.Step; step != nil {
		str += " [" + step.String() + "]"
	}
	return str
}

// FormatMessage renders a reply as its type name and text form.
func FormatMessage(msg fx.Message) string {
	if _, ok := msg.(*msgs.CommandOK); ok {
		return "OK"
	}
	name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
	if sm, ok := msg.(msgs.SerializableMessage); ok {
		return strings.TrimSpace(name + " " + sm.Serializable().String())
	}
	return name
}

// Exec runs a command on the current Session.
func Exec(c *ishell.Context, msg fx.Message) (fx.Message, error) {
	s := ShellFrom(c)
	if s.Session == nil {
		return nil, ErrNotConnected
	}
	return s.Session.Exec(msg, s.Timeout)
}

// PrintJSON prints msg in JSON.
func PrintJSON(c *ishell.Context, msg interface{}) error {
	if sm, ok := msg.(msgs.SerializableMessage); ok {
		msg = sm.Serializable()
	}
	out, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.Println(string(out))
	return nil
}

// DoCommand runs a command and prints the result in the shell's
// output format.
func DoCommand(c *ishell.Context, msg fx.Message) error {
	res, err := Exec(c, msg)
	if err == nil && ShellFrom(c).OutputJSON {
		err = PrintJSON(c, res)
	} else if err == nil {
		c.Println(FormatMessage(res))
	}
	if err != nil {
		c.Err(err)
	}
	return err
}

// DiscoverControllers lists controllers accepted by filter, nil
// accepts all.
func (s *Shell) DiscoverControllers(filter func(l1.ControllerInfo) bool) ([]l1.ControllerInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), DiscoverTimeout)
	defer cancel()
	found, err := connector.Discover(ctx)
	if err != nil || filter == nil {
		return found, err
	}
	var infos []l1.ControllerInfo
	for _, info := range found {
		if filter(info) {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// SelectController discovers controllers, and asks which one to use
// when more than one is found. It returns nil if none is found.
func (s *Shell) SelectController(filter func(l1.ControllerInfo) bool) (*l1.ControllerInfo, error) {
	infos, err := s.DiscoverControllers(filter)
	switch {
	case err != nil:
		return nil, err
	case len(infos) == 0:
		return nil, nil
	case len(infos) == 1:
		return &infos[0], nil
	case !s.Interactive:
		return nil, fmt.Errorf("%d controllers discovered, specify TYPE ID", len(infos))
	}
	items := make([]string, len(infos))
	for n, info := range infos {
		items[n] = FormatInfo(info)
	}
	return &infos[s.Shell.MultiChoice(items, "Which controller to connect?")], nil
}

// Connect opens a Session to ref, replacing the current one.
func (s *Shell) Connect(ref l1.ControllerRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	session, err := Open(connector, ref)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Session = session
	s.updatePrompt()
	return nil
}

// Disconnect closes the current Session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.updatePrompt()
	}
}

// Run processes args as a single command, or runs interactively.
func (s *Shell) Run(args ...string) {
	if ref := s.Config.Ref; s.AutoConnect && ref.IsValid() {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", ref.Name())
		}
		if err := s.Connect(ref); err != nil {
			log.Fatalf("connect %s: %v", ref.Name(), err)
		}
	}
	switch {
	case len(args) > 0:
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
	case s.Interactive:
		s.Shell.Run()
	default:
		log.Fatalln("command expected")
	}
	s.Disconnect()
}

var (
	// DiscoverCmd lists controllers.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[KEY=VALUE ...] list controllers with matching labels",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			selector, err := l1env.ParseLabels(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			infos, err := s.DiscoverControllers(func(info l1.ControllerInfo) bool {
				return info.MatchLabels(selector)
			})
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if infos == nil {
					infos = []l1.ControllerInfo{}
				}
				if err = PrintJSON(c, infos); err != nil {
					c.Err(err)
				}
				return
			}
			if len(infos) == 0 {
				c.Println("No controllers found")
			}
			for _, info := range infos {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a controller, discovering it when TYPE ID
	// is not fully given.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE [ID]] connect a controller",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ref, err := refFromArgs(s, c.Args)
			if err == nil {
				err = s.Connect(ref)
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current Session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close current connection",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

func refFromArgs(s *Shell, args []string) (l1.ControllerRef, error) {
	if len(args) >= 2 {
		return l1.ControllerRef{Type: args[0], ID: args[1]}, nil
	}
	filter := func(info l1.ControllerInfo) bool {
		return (len(args) == 0 || info.Ref.Type == args[0]) && info.MatchLabels(s.Config.Selector)
	}
	info, err := s.SelectController(filter)
	if err != nil {
		return l1.ControllerRef{}, err
	}
	if info == nil {
		return l1.ControllerRef{}, fmt.Errorf("no controller discovered")
	}
	return info.Ref, nil
}

// Main parses flags and runs the shell, connecting the controller
// configured by flags if any.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
