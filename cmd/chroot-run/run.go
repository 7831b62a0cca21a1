package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tkldev/chroot/chroot"
)

// Run is the main entry point. Returns exit code.
// sigCh can be nil if signal handling is not needed (e.g., in tests).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	flags := flag.NewFlagSet("chroot-run", flag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() {}
	flags.SetOutput(&strings.Builder{})

	flagHelp := flags.BoolP("help", "h", false, "Show help")
	flagVersion := flags.BoolP("version", "v", false, "Show version and exit")
	flagFull := flags.Bool("full", false, "Use the full bind-mount profile")
	flagProfile := flags.String("profile", "", "Load the mount profile from a YAML `file`")
	flagEnv := flags.StringArrayP("env", "e", nil, "Set KEY=VALUE inside the chroot (repeatable)")
	flagConfig := flags.String("config", "", "Use specified config `file`")
	flagDebug := flags.Bool("debug", false, "Echo constructed command lines")

	err := flags.Parse(args[1:])
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printUsage(stderr)

		return 1
	}

	if *flagVersion {
		if commit == "none" && date == "unknown" {
			fprintf(stdout, "chroot-run %s (built from source)\n", version)
		} else {
			fprintf(stdout, "chroot-run %s (%s, %s)\n", version, commit, date)
		}

		return 0
	}

	positional := flags.Args()

	if *flagHelp || len(positional) == 0 {
		printUsage(stdout)

		if *flagHelp {
			return 0
		}

		return 1
	}

	fileCfg, err := LoadConfig(LoadConfigInput{ConfigPath: *flagConfig, Env: env})
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	cfg, err := buildChrootConfig(stderr, fileCfg, chrootFlags{
		full:    *flagFull,
		profile: *flagProfile,
		env:     *flagEnv,
		debug:   *flagDebug,
	}, env)
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	root := positional[0]
	cmdArgs := positional[1:]

	// Run the session in a goroutine so signals can trigger teardown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- runSession(ctx, stdin, stdout, stderr, root, cmdArgs, cfg)
	}()

	if sigCh == nil {
		return <-done
	}

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(stderr, "Interrupted, waiting up to 10s for unmount... (Ctrl+C again to force exit)")
		cancel()
	}

	select {
	case <-done:
		fprintln(stderr, "Teardown complete.")

		return 130
	case <-time.After(10 * time.Second):
		fprintln(stderr, "Teardown timed out, forced exit.")

		return 130
	case <-sigCh:
		fprintln(stderr, "Forced exit.")

		return 130
	}
}

// chrootFlags carries the flag values that shape the session config.
type chrootFlags struct {
	full    bool
	profile string
	env     []string
	debug   bool
}

// buildChrootConfig merges config-file values, flags, and the ambient
// architecture/debug signals into a chroot.Config. This is the only place
// the ambient environment is read.
func buildChrootConfig(stderr io.Writer, fileCfg Config, f chrootFlags, env map[string]string) (*chroot.Config, error) {
	overrides := make(map[string]string, len(fileCfg.Env)+len(f.env))
	maps.Copy(overrides, fileCfg.Env)

	for _, kv := range f.env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q, expected KEY=VALUE", kv)
		}

		overrides[key] = value
	}

	var profile *chroot.Profile

	switch {
	case f.profile != "":
		var err error

		profile, err = LoadProfileFile(f.profile)
		if err != nil {
			return nil, err
		}

	case f.full || fileCfg.ProfileName == profileNameFull:
		profile = chroot.FullProfile()

	case fileCfg.ProfileName == profileNameMinimal:
		profile = chroot.MinimalProfile()
	}

	debug := f.debug || env["CHROOT_DEBUG"] != ""
	if fileCfg.Debug != nil && *fileCfg.Debug {
		debug = true
	}

	var debugf chroot.Debugf
	if debug {
		debugf = func(format string, args ...any) {
			fprintf(stderr, format+"\n", args...)
		}
	}

	return &chroot.Config{
		Env:        overrides,
		Profile:    profile,
		TargetArch: env["CHROOT_TARGET_ARCH"],
		HostArch:   env["CHROOT_HOST_ARCH"],
		Debugf:     debugf,
	}, nil
}

// runSession mounts, runs, and guarantees teardown of one chroot session.
func runSession(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, root string, cmdArgs []string, cfg *chroot.Config) int {
	c, err := chroot.New(root, cfg)
	if err != nil {
		fprintError(stderr, err)

		return 1
	}
	defer c.Close()

	if len(cmdArgs) == 0 {
		code, shellErr := c.Shell(ctx, "")
		if shellErr != nil {
			fprintError(stderr, shellErr)

			return 1
		}

		return code
	}

	res, err := c.Run(ctx, cmdArgs,
		chroot.WithStdin(stdin),
		chroot.WithStdout(stdout),
		chroot.WithStderr(stderr),
	)
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	return res.ExitCode
}

func fprintln(output io.Writer, a ...any) {
	_, _ = fmt.Fprintln(output, a...)
}

func fprintf(output io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(output, format, a...)
}

// ANSI color codes for terminal output.
const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// fprintError prints an error message with optional red coloring for TTY.
func fprintError(output io.Writer, err error) {
	if IsTerminal() {
		fprintln(output, colorRed+"error:"+colorReset, err)
	} else {
		fprintln(output, "error:", err)
	}
}

const usageText = `chroot-run - mount and execute inside a chroot environment

Usage: chroot-run [flags] <root> [command [args...]]

Runs a command inside the chroot at <root> after attaching the mount
profile, or opens an interactive shell when no command is given. Mounts
are detached in reverse order when the command exits.

Flags:
  -h, --help             Show help
  -v, --version          Show version and exit
      --full             Use the full bind-mount profile
      --profile <file>   Load the mount profile from a YAML file
  -e, --env KEY=VALUE    Set KEY=VALUE inside the chroot (repeatable)
      --config <file>    Use specified config file
      --debug            Echo constructed command lines

Environment:
  CHROOT_TARGET_ARCH     Declared build-target architecture
  CHROOT_HOST_ARCH       Declared host architecture
  CHROOT_DEBUG           Non-empty value enables --debug`

func printUsage(output io.Writer) {
	fprintln(output, usageText)
}

// isTerminal is a function variable that returns true if stdin is a terminal.
// It can be overridden in tests to control TTY behavior.
var isTerminal = func() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return isTerminal()
}
