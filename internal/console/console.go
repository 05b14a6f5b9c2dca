// Package console is a line-oriented operator front end for the engine.
//
// Each input line is one command:
//
//	on NAME [A|VALUE]   activate a signal (auto mode by default)
//	off NAME            deactivate a signal
//	all on [A|VALUE]    activate every signal
//	all off             deactivate every active signal
//	cycle [MS]          show or set the cycle time
//	status              show live workers and active signals
//	list                list catalog signals
//	quit                leave the console
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/clusterbus/internal/domain"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Controller is the engine surface the console drives.
type Controller interface {
	Activate(name string, mode domain.Mode) error
	Deactivate(name string) error
	ActivateAll(mode domain.Mode) error
	DeactivateAll() error
	SetCycleTime(ms int) error
	CycleTime() time.Duration
	LiveWorkers() []uint32
	SignalState(name string) (domain.SignalState, bool)
	Catalog() *domain.Catalog
}

// Console executes operator commands against a Controller.
type Console struct {
	ctrl   Controller
	out    io.Writer
	prompt string
}

// New creates a console writing results to out.
func New(ctrl Controller, out io.Writer) *Console {
	return &Console{ctrl: ctrl, out: out}
}

// WithPrompt sets the prompt printed before each line is read.
func (c *Console) WithPrompt(p string) *Console {
	c.prompt = p
	return c
}

// Run reads commands from in until EOF, quit or ctx is cancelled. Command
// errors are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.prompt != "" {
			fmt.Fprint(c.out, c.prompt)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		err := c.Exec(sc.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line. Blank lines and lines starting with #
// are ignored.
func (c *Console) Exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}
	root := c.rootCmd()
	root.SetArgs(args)
	return root.Execute()
}

// rootCmd builds a fresh command tree so no flag state leaks between lines.
func (c *Console) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterbus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(
		&cobra.Command{
			Use:   "on NAME [A|VALUE]",
			Short: "Activate a signal",
			Args:  cobra.RangeArgs(1, 2),
			// Negative values must not be read as flags.
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := modeArg(args, 1)
				if err != nil {
					return err
				}
				if err := c.ctrl.Activate(args[0], mode); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s on (%s)\n", args[0], mode)
				return nil
			},
		},
		&cobra.Command{
			Use:   "off NAME",
			Short: "Deactivate a signal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.ctrl.Deactivate(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s off\n", args[0])
				return nil
			},
		},
		c.allCmd(),
		&cobra.Command{
			Use:                "cycle [MS]",
			Short:              "Show or set the cycle time in milliseconds",
			Args:               cobra.MaximumNArgs(1),
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					ms, err := strconv.Atoi(args[0])
					if err != nil {
						return &domain.ValidationError{Input: args[0], Reason: "cycle time must be an integer number of milliseconds"}
					}
					if err := c.ctrl.SetCycleTime(ms); err != nil {
						return err
					}
				}
				fmt.Fprintf(c.out, "cycle time %v\n", c.ctrl.CycleTime())
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show live workers and active signals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c.printStatus()
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List catalog signals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.printList()
			},
		},
		&cobra.Command{
			Use:     "quit",
			Aliases: []string{"exit"},
			Short:   "Leave the console",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ErrQuit
			},
		},
	)
	return root
}

func (c *Console) allCmd() *cobra.Command {
	all := &cobra.Command{
		Use:   "all",
		Short: "Activate or deactivate every signal",
	}
	all.AddCommand(
		&cobra.Command{
			Use:                "on [A|VALUE]",
			Args:               cobra.MaximumNArgs(1),
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				mode, err := modeArg(args, 0)
				if err != nil {
					return err
				}
				if err := c.ctrl.ActivateAll(mode); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "all signals on (%s)\n", mode)
				return nil
			},
		},
		&cobra.Command{
			Use:  "off",
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.ctrl.DeactivateAll(); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "all signals off")
				return nil
			},
		},
	)
	return all
}

func modeArg(args []string, i int) (domain.Mode, error) {
	if len(args) <= i {
		return domain.Auto(), nil
	}
	return domain.ParseMode(args[i])
}

func (c *Console) printStatus() {
	live := c.ctrl.LiveWorkers()
	ids := make([]string, len(live))
	for i, id := range live {
		ids[i] = fmt.Sprintf("0x%X", id)
	}
	fmt.Fprintf(c.out, "cycle time %v, live workers [%s]\n", c.ctrl.CycleTime(), strings.Join(ids, " "))

	for _, name := range c.ctrl.Catalog().SignalNames() {
		st, _ := c.ctrl.SignalState(name)
		if st.Active {
			fmt.Fprintf(c.out, "  %s %s\n", name, st.Mode)
		}
	}
}

func (c *Console) printList() error {
	return WriteSignalTable(c.out, c.ctrl.Catalog(), c.ctrl.SignalState)
}

// WriteSignalTable prints one row per catalog signal. state may be nil to
// omit the activation column.
func WriteSignalTable(w io.Writer, cat *domain.Catalog, state func(string) (domain.SignalState, bool)) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "SIGNAL\tFRAME\tMIN\tMAX\tNEUTRAL\tUNIT"
	if state != nil {
		header += "\tSTATE"
	}
	fmt.Fprintln(tw, header)

	for _, f := range cat.Frames() {
		for _, s := range f.Signals {
			row := fmt.Sprintf("%s\t0x%X\t%g\t%g\t%g\t%s", s.Name, f.ID, s.Min, s.Max, s.Neutral, s.Unit)
			if state != nil {
				st, _ := state(s.Name)
				if st.Active {
					row += "\ton " + st.Mode.String()
				} else {
					row += "\toff"
				}
			}
			fmt.Fprintln(tw, row)
		}
	}
	return tw.Flush()
}
