// Package schema describes the command tree as JSON so scripts can discover
// commands, flags and accepted action names.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

type CommandSchema struct {
	Path        string          `json:"path"`
	Use         string          `json:"use"`
	Short       string          `json:"short"`
	Args        []string        `json:"args,omitempty"`
	ValidArgs   []string        `json:"valid_args,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Persistent  []FlagSchema    `json:"persistent_flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

type FlagSchema struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

// Build describes the command at commandPath (space separated, relative to
// root). An empty path describes the whole tree.
func Build(root *cobra.Command, commandPath string) (CommandSchema, error) {
	cmd := root
	for _, part := range strings.Fields(commandPath) {
		next := findChild(cmd, part)
		if next == nil {
			return CommandSchema{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("command not found: %s", strings.TrimSpace(commandPath)))
		}
		cmd = next
	}
	s := serialize(cmd)
	if cmd == root {
		s.Persistent = collectFlags(root.PersistentFlags())
	}
	return s, nil
}

func findChild(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name || contains(c.Aliases, name) {
			return c
		}
	}
	return nil
}

func serialize(cmd *cobra.Command) CommandSchema {
	s := CommandSchema{
		Path:      strings.TrimSpace(cmd.CommandPath()),
		Use:       cmd.Use,
		Short:     cmd.Short,
		Args:      useArgs(cmd.Use),
		ValidArgs: append([]string(nil), cmd.ValidArgs...),
		Aliases:   cmd.Aliases,
		Flags:     collectFlags(cmd.LocalNonPersistentFlags()),
	}
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		s.Subcommands = append(s.Subcommands, serialize(sub))
	}
	return s
}

// useArgs returns the positional placeholders of a Use line, e.g. <action>.
func useArgs(use string) []string {
	fields := strings.Fields(use)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

func collectFlags(set *pflag.FlagSet) []FlagSchema {
	items := []FlagSchema{}
	set.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
		items = append(items, FlagSchema{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
			Required:  required,
		})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
