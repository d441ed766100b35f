package cli

import (
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/arlowood/itemstore"
)

// Run is the main entry point, grounded on calvinalkan-agent-task's
// internal/cli Run dispatcher, trimmed of signal handling — itemstorectl's
// subcommands are single synchronous local calls, not long-running
// processes a user would need to interrupt.
func Run(out, errOut io.Writer, args []string) int {
	global := flag.NewFlagSet("itemstorectl", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.Usage = func() {}
	global.SetOutput(&strings.Builder{})

	flagHelp := global.BoolP("help", "h", false, "Show help")
	flagStore := global.StringP("store", "s", "", "Store `name` (required)")
	flagBasePath := global.StringP("base-path", "b", ".", "Parent `directory` holding the store")

	if err := global.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)
		return 1
	}

	commandAndArgs := global.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && global.NFlag() == 0) {
		printUsage(out, allCommands(&itemstore.Config{}))
		return 0
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		return 1
	}

	if *flagStore == "" {
		fprintln(errOut, "error: --store is required")
		return 1
	}

	cfg := &itemstore.Config{StoreName: *flagStore, BasePath: *flagBasePath}
	commands := allCommands(cfg)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	cmdName := commandAndArgs[0]
	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)
		return 1
	}

	return cmd.Run(NewIO(out, errOut), commandAndArgs[1:])
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "Usage: itemstorectl --store <name> [--base-path <dir>] <command> [args]")
	fprintln(w)
	fprintln(w, "Commands:")
	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}

func fprintln(w io.Writer, a ...any) {
	NewIO(w, w).Println(a...)
}
