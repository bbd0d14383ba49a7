package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/us1"
)

// Shell provides ishell backed interactive shell on a US1 board.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Board *us1.Board
}

const (
	shellKey      = "$shell"
	defaultPrompt = "us1 > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands []*ishell.Cmd

	// ErrNoBoard indicates the shell is not attached to a board.
	ErrNoBoard = errors.New("no board")
	// ErrCommandExpected is returned in non-interactive mode without a command.
	ErrCommandExpected = errors.New("command expected")
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(b *us1.Board) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Board: b,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(defaultPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustHaveBoard wraps command func requires a board.
func MustHaveBoard(fn func(c *ishell.Context, b *us1.Board)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		b := ShellFrom(c).Board
		if b == nil {
			c.Err(ErrNoBoard)
			return
		}
		fn(c, b)
	}
}

// Output prints v in JSON if requested, otherwise text.
func Output(c *ishell.Context, v interface{}, text string) {
	if !ShellFrom(c).OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Exec runs a single command if args are given, or the interactive shell.
func (s *Shell) Exec(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return ErrCommandExpected
}

// Name implements Named.
func (s *Shell) Name() string {
	return "shell"
}

// Run implements Runnable. It runs the interactive shell until
// exit or the context is canceled.
func (s *Shell) Run(ctx context.Context) error {
	if !s.Interactive {
		<-ctx.Done()
		return ctx.Err()
	}
	return fx.RunWithContextCancel(ctx, s.Shell.Close, func() error {
		s.Shell.Run()
		return nil
	})
}

// Errorf is a shortcut of c.Err(fmt.Errorf(...)).
func Errorf(c *ishell.Context, format string, args ...interface{}) {
	c.Err(fmt.Errorf(format, args...))
}
