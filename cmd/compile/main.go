package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/compiler-host/bridge"
	"github.com/wippyai/compiler-host/guest"
)

func main() {
	var (
		moduleFile  = flag.String("module", "", "Path to compiler module wasm file")
		srcFile     = flag.String("src", "", "Path to source file to compile")
		outFile     = flag.String("o", "", "Artifact output path (default: <src>.wasm)")
		depDir      = flag.String("depdir", "", "Directory resolved for dependency names")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	deps := make(map[string]string)
	flag.Func("dep", "Dependency mapping name=file (repeatable)", func(v string) error {
		name, file, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("want name=file, got %q", v)
		}
		deps[name] = file
		return nil
	})
	flag.Parse()

	if *moduleFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: compile -module <compiler.wasm> -src <file> [-dep name=file ...] [-depdir dir] [-o out.wasm]")
		fmt.Fprintln(os.Stderr, "       compile -module <compiler.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*moduleFile, deps, *depDir, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *srcFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -src is required outside interactive mode")
		os.Exit(1)
	}

	if err := run(*moduleFile, *srcFile, *outFile, deps, *depDir, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(moduleFile, srcFile, outFile string, deps map[string]string, depDir string, logger *zap.Logger) error {
	ctx := context.Background()

	moduleBytes, err := os.ReadFile(moduleFile)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	source, err := os.ReadFile(srcFile)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	b := bridge.New(
		guest.NewModuleLoader(moduleBytes, guest.WithLogger(logger)),
		bridge.WithLogger(logger),
	)
	defer b.Close(ctx)

	h := b.CreateContext(
		func(msg string) { fmt.Fprintf(os.Stderr, "compiler: %s\n", msg) },
		fetchFromFiles(deps, depDir),
	)
	defer b.DestroyContext(h)

	artifact, err := b.Compile(ctx, h, string(source))
	if err != nil {
		return err
	}

	if outFile == "" {
		outFile = strings.TrimSuffix(srcFile, filepath.Ext(srcFile)) + ".wasm"
	}
	if err := os.WriteFile(outFile, artifact.Wasm, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	fmt.Printf("Compiled %s -> %s (%d bytes)\n", srcFile, outFile, len(artifact.Wasm))
	return nil
}

// fetchFromFiles resolves dependency names against explicit name=file
// mappings first, then against depDir.
func fetchFromFiles(deps map[string]string, depDir string) func(context.Context, string) (string, error) {
	return func(_ context.Context, name string) (string, error) {
		if file, ok := deps[name]; ok {
			contents, err := os.ReadFile(file)
			if err != nil {
				return "", fmt.Errorf("dependency %q: %w", name, err)
			}
			return string(contents), nil
		}
		if depDir != "" {
			contents, err := os.ReadFile(filepath.Join(depDir, filepath.Clean(name)))
			if err != nil {
				return "", fmt.Errorf("dependency %q: %w", name, err)
			}
			return string(contents), nil
		}
		return "", fmt.Errorf("dependency %q: no mapping and no -depdir", name)
	}
}
