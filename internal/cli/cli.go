// Package cli parses earworm command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandListen  Command = "listen"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandClear   Command = "clear"
	CommandSearch  Command = "search"
	CommandHistory Command = "history"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:  {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandClear:   {},
	CommandSearch:  {},
	CommandHistory: {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// History output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// SearchText is the joined argument list of the search command.
	SearchText string
	// Format and Limit apply to the history command; Limit 0 means the config default.
	Format string
	Limit  int
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, Format: FormatText}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			rest := args[i+1:]
			switch cmd {
			case CommandSearch:
				text := strings.TrimSpace(strings.Join(rest, " "))
				if text == "" {
					return Parsed{}, errors.New("search requires text")
				}
				parsed.SearchText = text
			case CommandHistory:
				if err := parseHistoryFlags(rest, &parsed); err != nil {
					return Parsed{}, err
				}
			default:
				if len(rest) > 0 {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
				}
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseHistoryFlags(args []string, parsed *Parsed) error {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--format":
			i++
			if i >= len(args) {
				return errors.New("--format requires a value")
			}
			format := strings.ToLower(strings.TrimSpace(args[i]))
			if format != FormatText && format != FormatJSON && format != FormatYAML {
				return fmt.Errorf("--format must be one of: text, json, yaml")
			}
			parsed.Format = format
		case "--limit":
			i++
			if i >= len(args) {
				return errors.New("--limit requires a value")
			}
			limit, err := strconv.Atoi(args[i])
			if err != nil || limit <= 0 {
				return fmt.Errorf("--limit must be a positive integer")
			}
			parsed.Limit = limit
		default:
			return fmt.Errorf("unexpected history argument: %s", args[i])
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  listen    Start listening, or stop and identify when already listening
  stop      Stop listening and identify the song
  cancel    Cancel listening and discard results
  status    Print current state and best match
  clear     Reset the last result and error while idle
  search    Search lyrics for TEXT...
  history   Print recent recognitions [--format text|json|yaml] [--limit N]
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/earworm/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
