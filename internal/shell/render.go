package shell

import (
	"fmt"
	"strings"

	"github.com/danmuck/nexusctl/internal/registry"
)

func paramLabels(cmd registry.CommandDescriptor) string {
	labels := make([]string, 0, len(cmd.Params))
	for _, p := range cmd.Params {
		labels = append(labels, "<"+p.Label+">")
	}
	return strings.Join(labels, " ")
}

// overviewHelp lists every service with its commands on one line each.
func overviewHelp(services []registry.ServiceDescriptor) string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, svc := range services {
		b.WriteString("\n  " + svc.Name + ":")
		if svc.Doc != "" {
			b.WriteString(" " + svc.Doc)
		}
		for _, cmd := range svc.Commands {
			b.WriteString("\n    " + cmd.Name)
			if labels := paramLabels(cmd); labels != "" {
				b.WriteString(" " + labels)
			}
			if cmd.Doc != "" {
				b.WriteString(" - " + cmd.Doc)
			}
		}
	}
	return b.String()
}

// serviceHelp expands one service: each command with its signature, doc, and
// per-parameter detail lines.
func serviceHelp(services []registry.ServiceDescriptor, name string) string {
	var svc registry.ServiceDescriptor
	found := false
	for _, s := range services {
		if s.Name == name {
			svc, found = s, true
			break
		}
	}
	if !found {
		return fmt.Sprintf("Unknown service '%s'. Type 'help' to list all services.", name)
	}

	var lines []string
	header := svc.Name + ":"
	if svc.Doc != "" {
		header += " " + svc.Doc
	}
	lines = append(lines, header, "")

	for _, cmd := range svc.Commands {
		sig := "  " + cmd.Name
		if labels := paramLabels(cmd); labels != "" {
			sig += " " + labels
		}
		lines = append(lines, sig)
		if cmd.Doc != "" {
			lines = append(lines, "    "+cmd.Doc)
		}
		for _, p := range cmd.Params {
			if p.Doc == "" && p.Completer == "" {
				continue
			}
			parts := []string{"    <" + p.Label + ">"}
			if p.Doc != "" {
				parts = append(parts, p.Doc)
			}
			if p.Completer != "" {
				parts = append(parts, "(completions from "+p.Completer+")")
			}
			lines = append(lines, strings.Join(parts, " - "))
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
