package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/AarenWang/haifa-go/compiler"
	"github.com/AarenWang/haifa-go/luadebug"
	"github.com/AarenWang/haifa-go/stdlib"
	"github.com/AarenWang/haifa-go/values"
	"github.com/AarenWang/haifa-go/version"
	"github.com/AarenWang/haifa-go/vm"
)

func main() {
	app := &cli.Command{
		Name:  "haifa",
		Usage: "A teaching register-VM for a Lua subset",
		Commands: []*cli.Command{
			listCommand,
			runCommand,
			replCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version",
				Usage: "Show version",
				Action: func(ctx context.Context, cmd *cli.Command, b bool) error {
					if b {
						fmt.Println(version.Version())
					}
					return nil
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				return nil
			}
			return runREPL()
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the embedded demo programs",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		for _, d := range demos {
			fmt.Printf("%-12s %s\n", d.name, d.description)
		}
		return nil
	},
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Compile and run one embedded demo program",
	ArgsUsage: "<demo-name>",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("usage: haifa run <demo-name> (see `haifa list`)")
		}
		return runDemo(name, os.Stdout)
	},
}

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "Interactive shell: type a demo name to run it",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runREPL()
	},
}

// runDemo builds, compiles and executes demo name, writing its printed
// output and final return values to w.
func runDemo(name string, w io.Writer) error {
	d, ok := findDemo(name)
	if !ok {
		names := make([]string, len(demos))
		for i, dd := range demos {
			names[i] = dd.name
		}
		sort.Strings(names)
		return fmt.Errorf("no such demo %q (available: %s)", name, strings.Join(names, ", "))
	}

	chunk := d.build()
	prog, err := compiler.Compile(chunk, name+".lua")
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	globals := stdlib.OpenLibs(values.NewEmptyTable())
	machine := vm.NewVirtualMachine()
	execCtx, err := machine.Execute(prog, nil, globals)
	if err != nil {
		fmt.Fprintln(w, luadebug.Format(execCtx, err.Error()))
		return fmt.Errorf("runtime error: %w", err)
	}

	for _, v := range execCtx.OutputBuffer {
		fmt.Fprintln(w, v.ToDisplayString())
	}
	if len(execCtx.LastReturn) > 0 {
		parts := make([]string, len(execCtx.LastReturn))
		for i, v := range execCtx.LastReturn {
			parts[i] = v.ToDisplayString()
		}
		fmt.Fprintf(w, "=> %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "(%s instructions)\n", humanize.Comma(int64(len(prog.Code))))
	return nil
}

// runREPL drives an interactive shell over the embedded demos: each
// line names one to compile and run. isatty decides whether to show
// the prompt (piped input just runs silently), mirroring the
// teacher's "-a" interactive-shell flag.
func runREPL() error {
	interactive := isatty.IsTerminal(os.Stdin.Fd())

	prompt := "haifa > "
	if !interactive {
		prompt = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	if interactive {
		fmt.Println("haifa repl: type a demo name (see `list`), `list`, or `exit`.")
	}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "list":
			for _, d := range demos {
				fmt.Printf("%-12s %s\n", d.name, d.description)
			}
			continue
		}

		if err := runDemo(line, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.haifa_history"
}
