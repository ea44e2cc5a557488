package gitcmd

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/abiosoft/lineprefix"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/pescuma/pushguard/lib/consoles"
)

type Options struct {
	Binary string
	Dir    string
	Env    []string
}

// Runner executes git commands inside one repository.
type Runner struct {
	console consoles.Console
	opts    Options
}

// InputHandler writes the input of a command. The input is closed when it returns.
type InputHandler func(w io.Writer) error

// OutputHandler consumes the output of a command. Anything it leaves unread is drained.
type OutputHandler interface {
	Process(r io.Reader) error
}

func NewRunner(console consoles.Console, opts *Options) *Runner {
	o := Options{
		Binary: "git",
	}
	if opts != nil {
		if opts.Binary != "" {
			o.Binary = opts.Binary
		}
		o.Dir = opts.Dir
		o.Env = opts.Env
	}

	return &Runner{
		console: console,
		opts:    o,
	}
}

func (r *Runner) Dir() string {
	return r.opts.Dir
}

func (r *Runner) Console() consoles.Console {
	return r.console
}

// Run executes git with args. Failures of the process or of its streams are returned as errors,
// and so is the context being done, which is how a watchdog stops a command.
func (r *Runner) Run(ctx context.Context, output OutputHandler, input InputHandler, args ...string) error {
	if len(args) == 0 {
		return errors.New("missing git command")
	}
	if output == nil {
		output = discard{}
	}

	cmd := exec.CommandContext(ctx, r.opts.Binary, args...)
	cmd.Dir = r.opts.Dir
	if len(r.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), r.opts.Env...)
	}

	stderr := newTailBuffer(4 * 1024)
	if r.console.Verbose() {
		prefix := lineprefix.PrefixFunc(func() string {
			return r.console.Prepare("git %v: ", args[0])
		})
		cmd.Stderr = io.MultiWriter(stderr, lineprefix.New(lineprefix.Writer(os.Stderr), prefix))
	} else {
		cmd.Stderr = stderr
	}

	var stdin io.WriteCloser
	var err error
	if input != nil {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return errors.Wrapf(err, "git %v", args[0])
		}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "git %v", args[0])
	}

	r.console.Debugf("Executing '%v'\n", strings.Join(cmd.Args, "' '"))

	err = cmd.Start()
	if err != nil {
		if stdin != nil {
			_ = stdin.Close()
		}
		return errors.Wrapf(err, "unable to start git %v", args[0])
	}

	streams := pool.New().WithErrors()

	if input != nil {
		streams.Go(func() error {
			defer stdin.Close()

			return input(stdin)
		})
	}

	streams.Go(func() error {
		err := output.Process(stdout)

		_, drainErr := io.Copy(io.Discard, stdout)
		if err != nil {
			return err
		}
		return drainErr
	})

	streamErr := streams.Wait()
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return errors.Wrapf(ctx.Err(), "git %v was stopped by the watchdog", args[0])
	case waitErr != nil:
		return errors.Wrapf(waitErr, "git %v failed: %v", args[0], stderr.String())
	case streamErr != nil:
		return errors.Wrapf(streamErr, "git %v: error processing streams", args[0])
	default:
		return nil
	}
}

type discard struct{}

func (discard) Process(io.Reader) error {
	return nil
}
