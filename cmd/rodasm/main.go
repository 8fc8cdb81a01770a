// Command rodasm assembles a rod bytecode listing, validates it and prints
// its disassembly.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/liquid600pgm/rod/config"
	"github.com/liquid600pgm/rod/pkg/asm"
	"github.com/liquid600pgm/rod/pkg/bytecode"
	"github.com/liquid600pgm/rod/vm"
)

var log = commonlog.GetLogger("rod.cmd")

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity, overrides rod.toml: -4 none, -3 critical, -2 error, -1 warning, 0 notice, 1 info, 2 debug")
	colorMode := flag.String("color", "", "Colour mode: auto, always or never (overrides rod.toml)")
	lines := flag.Bool("lines", false, "Annotate instructions with source positions")
	quiet := flag.Bool("q", false, "Validate only, do not print the listing")
	projectDir := flag.String("C", ".", "Directory to search for rod.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rodasm [options] [file.rasm]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles a bytecode listing, validates it and prints the disassembly.\n")
		fmt.Fprintf(os.Stderr, "Without a file, the project entry from rod.toml is used; '-' reads stdin.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rodasm prog.rasm             # Print the listing\n")
		fmt.Fprintf(os.Stderr, "  rodasm -q prog.rasm          # Only check the listing\n")
		fmt.Fprintf(os.Stderr, "  rodasm -lines -color never   # Entry from rod.toml, plain text\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlags(cfg, set, *verbosity, *colorMode, *lines)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())
	if cfg.Dir != "" {
		log.Infof("using %s", filepath.Join(cfg.Dir, config.FileName))
	}

	path := flag.Arg(0)
	if path == "" {
		path = cfg.EntryPath()
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(path, cfg, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides rod.toml settings with the flags given on the
// command line. Verbosity is applied only when -v was passed, since every
// integer is a valid commonlog verbosity.
func applyFlags(cfg *config.Config, set map[string]bool, verbosity int, colorMode string, lines bool) {
	if set["v"] {
		cfg.Log.Verbosity = verbosity
	}
	if colorMode != "" {
		cfg.Disasm.Color = colorMode
	}
	if lines {
		cfg.Disasm.Lines = true
	}
}

func run(path string, cfg *config.Config, quiet bool) error {
	src, name, err := readSource(path)
	if err != nil {
		return err
	}

	types := vm.NewTypeRegistry()
	script, err := asm.AssembleWith(name, src, asm.Options{
		Types:        types,
		DefaultStack: cfg.Assembler.DefaultStack,
	})
	if err != nil {
		return err
	}
	if err := script.Validate(); err != nil {
		return fmt.Errorf("%s: invalid bytecode: %w", name, err)
	}
	log.Infof("%s: %d procs, %d types, script %s", name, script.ProcCount(), types.Count(), script.ID())

	if quiet {
		return nil
	}

	out := color.Output
	useColor := cfg.UseColor(isTerminal(os.Stdout))
	_, err = fmt.Fprint(out, script.Disassemble(bytecode.DisasmOptions{
		Color: useColor,
		Lines: cfg.Disasm.Lines,
		Types: types,
	}))
	return err
}

func readSource(path string) (src, name string, err error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("cannot read stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(data), path, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
