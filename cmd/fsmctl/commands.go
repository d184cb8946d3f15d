package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/definition"
	"github.com/amp-labs/amp-fsm/session"
	"github.com/amp-labs/amp-fsm/should"
	"github.com/amp-labs/amp-fsm/validator"
	"github.com/amp-labs/amp-fsm/visualizer"
)

var errInvalid = errors.New("definition has errors")

func newFlagSet(name string, env *environment, positional string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(env.io.err)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: fsmctl %s [flags] %s\n", name, positional)
		flags.PrintDefaults()
	}

	return flags
}

func runValidate(_ context.Context, env *environment, args []string) error {
	flags := newFlagSet("validate", env, "file...")
	strict := flags.Bool("strict", false, "treat warnings as errors")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() == 0 {
		flags.Usage()

		return errUsage
	}

	failed := false

	for _, path := range flags.Args() {
		result, err := validator.ValidateFile(path, *strict)
		if err != nil {
			fmt.Fprintf(env.io.out, "%s: %v\n", path, err)

			failed = true

			continue
		}

		fmt.Fprintf(env.io.out, "%s: %s", path, result.String())

		if !result.Valid {
			failed = true
		}
	}

	if failed {
		return errInvalid
	}

	return nil
}

func runRender(_ context.Context, env *environment, args []string) error {
	flags := newFlagSet("render", env, "file")
	format := flags.String("format", visualizer.FormatMermaid, "diagram format: mermaid or dot")
	direction := flags.String("direction", "TB", "layout direction: TB, LR, BT or RL")
	highlight := flags.String("highlight", "", "comma-separated states to highlight")
	fenced := flags.Bool("fenced", false, "wrap Mermaid output in a markdown fence")
	actions := flags.Bool("actions", true, "label edges with actions")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()

		return errUsage
	}

	machine, err := compile(flags.Arg(0))
	if err != nil {
		return err
	}

	opts := visualizer.DefaultOptions().
		WithDirection(*direction).
		WithFenced(*fenced).
		WithShowActions(*actions)

	if *highlight != "" {
		opts = opts.WithHighlightPath(strings.Split(*highlight, ","))
	}

	out, err := visualizer.Render(*format, validator.FromDefinition(machine).Table, machine.Definition.Initial, opts)
	if err != nil {
		return err
	}

	_, err = io.WriteString(env.io.out, out)

	return err
}

func runMachine(ctx context.Context, env *environment, args []string) error {
	flags := newFlagSet("run", env, "file input...")
	data := flags.String("data", "", "initial bindings as a JSON object")
	resume := flags.String("session", "", "resume this session from the store instead of starting one")
	keepGoing := flags.Bool("keep-going", false, "continue after a rejected input")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() == 0 {
		flags.Usage()

		return errUsage
	}

	sess, err := openSession(ctx, env, flags.Arg(0), *data, *resume)
	if err != nil {
		return err
	}

	defer sess.close(ctx)

	var errs []error

	for _, name := range flags.Args()[1:] {
		if err := sess.step(ctx, env.io.out, name); err != nil {
			errs = append(errs, err)

			if !*keepGoing {
				break
			}
		}
	}

	sess.summary(env.io.out)

	return errors.Join(errs...)
}

func runRepl(ctx context.Context, env *environment, args []string) error {
	flags := newFlagSet("repl", env, "file")
	data := flags.String("data", "", "initial bindings as a JSON object")
	resume := flags.String("session", "", "resume this session from the store instead of starting one")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		flags.Usage()

		return errUsage
	}

	sess, err := openSession(ctx, env, flags.Arg(0), *data, *resume)
	if err != nil {
		return err
	}

	defer sess.close(ctx)

	def := sess.machine.Definition

	title := def.Name
	if def.Description != "" {
		title += "\n" + def.Description
	}

	fmt.Fprint(env.io.out, cli.Banner(title, cli.DefaultWidth, cli.AlignCenter))

	term := cli.Terminal{Stdin: env.io.in, Stdout: nopWriteCloser{env.io.out}}

	for ctx.Err() == nil {
		info, err := sess.manager.Get(sess.id)
		if err != nil {
			return err
		}

		name, err := term.SelectInput("state "+info.State.Name(), def.Inputs)
		if errors.Is(err, cli.ErrQuit) {
			break
		}

		if err != nil {
			return err
		}

		// Rejected inputs are reported and the loop continues.
		_ = sess.step(ctx, env.io.out, name)
	}

	sess.summary(env.io.out)

	return nil
}

func compile(path string) (*definition.Machine, error) {
	def, err := definition.Load(path)
	if err != nil {
		return nil, err
	}

	return def.Compile(nil, nil)
}

// runSession is one session of a compiled machine, persisted to the
// configured store.
type runSession struct {
	machine *definition.Machine
	manager *session.Manager[*definition.Bindings]
	id      string
	closers []func(ctx context.Context)
}

func openSession(ctx context.Context, env *environment, path, data, resume string) (*runSession, error) {
	machine, err := compile(path)
	if err != nil {
		return nil, err
	}

	bindings := definition.NewBindings()

	if data != "" {
		values := make(map[string]any)
		if err := json.Unmarshal([]byte(data), &values); err != nil {
			return nil, fmt.Errorf("parsing -data: %w", err)
		}

		bindings.Merge(values)
	}

	st, err := env.cfg.Store.Open(ctx)
	if err != nil {
		return nil, err
	}

	sess := &runSession{machine: machine}
	sess.closers = append(sess.closers, func(ctx context.Context) {
		should.Close(ctx, st, "closing snapshot store")
	})

	sess.manager, err = session.NewManager(machine.Engine, machine.Initial,
		session.WithStore[*definition.Bindings](st),
		session.WithCodec[*definition.Bindings](definition.EncodeBindings, definition.DecodeBindings))
	if err != nil {
		sess.close(ctx)

		return nil, err
	}

	if resume != "" {
		if _, err := sess.manager.Resume(ctx, resume); err != nil {
			sess.close(ctx)

			return nil, err
		}

		sess.id = resume
	} else {
		sess.id, err = sess.manager.Open(ctx, bindings)
		if err != nil {
			sess.close(ctx)

			return nil, err
		}
	}

	return sess, nil
}

func (s *runSession) step(ctx context.Context, w io.Writer, name string) error {
	in, ok := s.machine.Input(name)
	if !ok {
		err := fmt.Errorf("%w: %q", definition.ErrUnknownInput, name)
		fmt.Fprintf(w, "%-12s %v\n", name, err)

		return err
	}

	before, err := s.manager.Get(s.id)
	if err != nil {
		return err
	}

	after, err := s.manager.Feed(ctx, s.id, in)
	if err != nil {
		fmt.Fprintf(w, "%-12s %s: %v\n", name, before.State.Name(), err)

		return err
	}

	fmt.Fprintf(w, "%-12s %s -> %s\n", name, before.State.Name(), after.Name())

	return nil
}

func (s *runSession) summary(w io.Writer) {
	info, err := s.manager.Get(s.id)
	if err != nil {
		return
	}

	raw, err := info.Data.MarshalJSON()
	if err != nil {
		raw = []byte("{}")
	}

	fmt.Fprintf(w, "session %s: state %s, bindings %s\n", s.id, info.State.Name(), raw)
}

func (s *runSession) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}

	s.closers = nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
