package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseCommand splits a shell-like command line into argv. Single and
// double quotes group words, a backslash escapes the next rune, and a
// leading "~/" on the program path expands to the home directory. A blank
// or "#"-commented line disables the command.
func ParseCommand(raw string) (CommandConfig, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return CommandConfig{}, nil
	}

	argv, err := splitWords(trimmed)
	if err != nil {
		return CommandConfig{}, err
	}
	if len(argv) > 0 {
		argv[0] = expandHome(argv[0])
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

type wordSplitter struct {
	words   []string
	current strings.Builder
	inWord  bool
}

func (s *wordSplitter) add(r rune) {
	s.current.WriteRune(r)
	s.inWord = true
}

// end closes the current word; quoted empty strings still count as words.
func (s *wordSplitter) end() {
	if !s.inWord {
		return
	}
	s.words = append(s.words, s.current.String())
	s.current.Reset()
	s.inWord = false
}

func splitWords(input string) ([]string, error) {
	var (
		s      wordSplitter
		quote  rune
		escape bool
	)

	for _, r := range input {
		switch {
		case escape:
			s.add(r)
			escape = false
		case r == '\\' && quote != '\'':
			escape = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			s.add(r)
		case r == '\'' || r == '"':
			quote = r
			s.inWord = true
		case unicode.IsSpace(r):
			s.end()
		default:
			s.add(r)
		}
	}

	switch {
	case escape:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	s.end()
	return s.words, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}
