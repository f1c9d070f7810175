// Command talon runs Language scripts and hosts an interactive REPL.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	talon "github.com/talon-lang/talon"
)

const (
	promptMain = ">>> "
	promptCont = "... "
)

var historyFile = filepath.Join(os.TempDir(), ".talon_history")

func main() {
	var evalSource string
	var enableOS bool

	root := &cobra.Command{
		Use:   "talon [script] [args...]",
		Short: "Talon is an embeddable Python-subset interpreter",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := talon.DefaultConfig()
			cfg.EnableOSAccess = enableOS
			cfg.Isatty = true

			if evalSource != "" {
				cfg.Argv = []string{"-c"}
				return runSource(&cfg, evalSource, "<string>", "")
			}
			if len(args) == 0 {
				return repl(&cfg)
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg.Argv = args
			return runSource(&cfg, string(source), args[0], filepath.Dir(args[0]))
		},
	}
	root.Flags().StringVarP(&evalSource, "command", "c", "", "run the given source text")
	root.Flags().BoolVar(&enableOS, "enable-os", false, "register the os module")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSource(cfg *talon.Config, source, name, importPath string) error {
	ctx := talon.NewContext(cfg)
	if ctx == nil {
		return fmt.Errorf("talon: could not create interpreter context")
	}
	defer ctx.Destroy()
	if importPath != "" {
		ctx.SetImportPath(importPath)
	}

	if ctx.Execute(source, name) == nil {
		msg := ctx.GetErrorMessage()
		ctx.ClearCurrentException()
		return fmt.Errorf("%s", strings.TrimRight(msg, "\n"))
	}
	return nil
}

// repl reads statements with continuation for indented blocks: a line
// ending in ':' opens the buffer, and every following non-blank line is
// added to it until a blank line closes it.
func repl(cfg *talon.Config) error {
	ctx := talon.NewContext(cfg)
	if ctx == nil {
		return fmt.Errorf("talon: could not create interpreter context")
	}
	defer ctx.Destroy()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("Talon %s REPL. Ctrl+D exits.\n", talon.Version)
	for {
		var buf []string
		input, err := line.Prompt(promptMain)
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			return nil
		}
		buf = append(buf, input)

		for needsContinuation(buf) {
			more, err := line.Prompt(promptCont)
			if err != nil {
				break
			}
			if strings.TrimSpace(more) == "" {
				break
			}
			buf = append(buf, more)
		}

		source := strings.Join(buf, "\n")
		if strings.TrimSpace(source) == "" {
			continue
		}
		line.AppendHistory(source)
		evalLine(ctx, source)
	}
}

func needsContinuation(buf []string) bool {
	last := buf[len(buf)-1]
	if strings.HasSuffix(strings.TrimRight(last, " \t"), ":") {
		return true
	}
	if len(buf) > 1 && strings.TrimSpace(last) != "" {
		return true
	}
	return false
}

// evalLine tries expression mode first so bare expressions echo their
// value, falling back to statement execution.
func evalLine(ctx *talon.Context, source string) {
	if !strings.Contains(source, "\n") {
		if result := ctx.ExecuteExpression(source, "<stdin>"); result != nil {
			if !talon.IsNone(result) {
				if s := ctx.Repr(result); s != nil {
					fmt.Println(talon.GetString(s))
				}
			}
			return
		}
		ctx.ClearCurrentException()
	}
	if ctx.Execute(source, "<stdin>") == nil {
		fmt.Print(ctx.GetErrorMessage())
		ctx.ClearCurrentException()
	}
}
