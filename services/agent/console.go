package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"eir-go/bus"
	"eir-go/errcode"
	"eir-go/services/msg"
)

// Default entity names used by the console shortcuts.
const (
	ConsoleLED     = "led"
	ConsoleInt     = "pico_subscriber"
	ConsoleService = "pico_srv"
)

// Console turns typed lines into bus traffic for the agent.
type Console struct {
	bc      *bus.Connection
	out     io.Writer
	timeout time.Duration
}

func NewConsole(bc *bus.Connection, out io.Writer) *Console {
	return &Console{bc: bc, out: out, timeout: DefaultCallTimeout}
}

const consoleHelp = `commands:
  led R G B [A]          colour for the device strip (0-255)
  int N [name]           Int32 to a device subscription
  srv true|false [name]  call a SetBool service
  entities               list device declarations
  help`

// Run executes one command per line from r until EOF or ctx is done.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.Exec(ctx, sc.Text()); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
	}
	return sc.Err()
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return errcode.Wrap(errcode.InvalidParams, "console", err)
	}
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "led":
		return c.led(args[1:])
	case "int":
		return c.sendInt(args[1:])
	case "srv":
		return c.srv(ctx, args[1:])
	case "entities":
		c.entities()
		return nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	}
	return errcode.Wrap(errcode.Unsupported, "console", fmt.Errorf("unknown command %q", args[0]))
}

func (c *Console) publish(name string, m msg.Message) {
	c.bc.Publish(c.bc.NewMessage(bus.T("agent", "pub", name), m, false))
}

func (c *Console) led(args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errcode.Wrap(errcode.InvalidParams, "led", fmt.Errorf("want R G B [A]"))
	}
	var v [4]float32
	v[3] = 1
	for i, a := range args {
		n, err := strconv.ParseUint(a, 10, 8)
		if err != nil {
			return errcode.Wrap(errcode.InvalidParams, "led", err)
		}
		v[i] = float32(n) / 255
	}
	c.publish(ConsoleLED, &msg.ColorRGBA{R: v[0], G: v[1], B: v[2], A: v[3]})
	return nil
}

func (c *Console) sendInt(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errcode.Wrap(errcode.InvalidParams, "int", fmt.Errorf("want N [name]"))
	}
	n, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return errcode.Wrap(errcode.InvalidParams, "int", err)
	}
	name := ConsoleInt
	if len(args) == 2 {
		name = args[1]
	}
	c.publish(name, &msg.Int32{Data: int32(n)})
	return nil
}

func (c *Console) srv(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errcode.Wrap(errcode.InvalidParams, "srv", fmt.Errorf("want true|false [name]"))
	}
	b, err := strconv.ParseBool(args[0])
	if err != nil {
		return errcode.Wrap(errcode.InvalidParams, "srv", err)
	}
	name := ConsoleService
	if len(args) == 2 {
		name = args[1]
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	m, err := c.bc.RequestWait(ctx, c.bc.NewMessage(bus.T("agent", "call", name), &msg.SetBoolRequest{Data: b}, false))
	if err != nil {
		return errcode.Wrap(errcode.Timeout, "srv", err)
	}
	switch p := m.Payload.(type) {
	case error:
		return p
	case *msg.SetBoolResponse:
		fmt.Fprintf(c.out, "%s: success=%t message=%q\n", name, p.Success, p.Message)
	default:
		fmt.Fprintf(c.out, "%s: %v\n", name, p)
	}
	return nil
}

// entities lists the retained declarations on the bus.
func (c *Console) entities() {
	sub := c.bc.Subscribe(bus.T("device", "entity", "+"))
	defer c.bc.Unsubscribe(sub)
	var lines []string
drain:
	for {
		select {
		case m := <-sub.Channel():
			if e, ok := m.Payload.(Entity); ok {
				lines = append(lines, fmt.Sprintf("%3d  %s", e.ID, e))
			}
		default:
			break drain
		}
	}
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "no entities")
		return
	}
	sort.Strings(lines)
	fmt.Fprintln(c.out, strings.Join(lines, "\n"))
}
