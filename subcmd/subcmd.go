package subcmd

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const program = "artiststats"

func New(name, doc string) *Subcommand {
	sc := &Subcommand{
		FlagSet: flag.NewFlagSet(name, flag.ContinueOnError),
	}
	sc.FlagSet.Usage = func() {
		out := sc.FlagSet.Output()
		argSuffix := ""
		if sc.arg != nil {
			argSuffix = fmt.Sprintf(" [%s]", sc.arg.name)
		}
		fmt.Fprintf(out, "\n%s\n\n", doc)
		fmt.Fprintf(out, "  %s %s [flags]%s\n\n", program, name, argSuffix)
		fmt.Fprintf(out, "flags:\n")
		sc.FlagSet.PrintDefaults()
		if sc.arg != nil {
			fmt.Fprintf(out, "  %s %s\n", sc.arg.name, sc.arg.typename)
			fmt.Fprintf(out, "  \t%s\n", sc.arg.usage)
		}
	}
	sc.FlagSet.SetOutput(os.Stderr)
	return sc
}

type Subcommand struct {
	*flag.FlagSet
	arg *arg
}

type arg struct {
	name     string
	typename string
	usage    string
}

// SetArg documents the subcommand's single optional positional argument.
func (sc *Subcommand) SetArg(name, typname, usage string) *Subcommand {
	sc.arg = &arg{name, typname, usage}
	return sc
}

// SetOutput sends usage and parse errors to w.
func (sc *Subcommand) SetOutput(w io.Writer) *Subcommand {
	sc.FlagSet.SetOutput(w)
	return sc
}

// Parse parses args, then checks that there's at most one positional
// argument, and none if SetArg wasn't called.
func (sc *Subcommand) Parse(args []string) error {
	if err := sc.FlagSet.Parse(args); err != nil {
		return err
	}
	allowed := 0
	if sc.arg != nil {
		allowed = 1
	}
	if sc.NArg() > allowed {
		sc.FlagSet.Usage()
		return fmt.Errorf("%s: unexpected arguments %q", sc.Name(), sc.Args()[allowed:])
	}
	return nil
}
