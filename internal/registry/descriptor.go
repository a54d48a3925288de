package registry

import (
	"fmt"
	"strings"
)

// ParamDescriptor describes one positional command parameter. Position is the
// slice index in CommandDescriptor.Params. Completer optionally names a
// zero-argument command ("service.command") whose comma-separated output seeds
// tab completion for this parameter.
type ParamDescriptor struct {
	Label     string `json:"label"`
	Doc       string `json:"doc,omitempty"`
	Completer string `json:"completer,omitempty"`
}

// CommandDescriptor describes one invokable command on a service.
type CommandDescriptor struct {
	Name   string            `json:"name"`
	Doc    string            `json:"doc,omitempty"`
	Params []ParamDescriptor `json:"params,omitempty"`
}

// ServiceDescriptor describes a registered service and its commands in
// declaration order.
type ServiceDescriptor struct {
	Name     string              `json:"name"`
	Doc      string              `json:"doc,omitempty"`
	Commands []CommandDescriptor `json:"commands,omitempty"`
}

// Command returns the named command descriptor, if declared.
func (d ServiceDescriptor) Command(name string) (CommandDescriptor, bool) {
	for _, cmd := range d.Commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return CommandDescriptor{}, false
}

func (d ServiceDescriptor) Validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidDescriptor)
	}
	if name != strings.ToLower(name) {
		return fmt.Errorf("%w: service name %q must be lowercase", ErrInvalidDescriptor, name)
	}
	if strings.ContainsAny(name, " \t.") {
		return fmt.Errorf("%w: service name %q contains reserved characters", ErrInvalidDescriptor, name)
	}
	seen := make(map[string]struct{}, len(d.Commands))
	for _, cmd := range d.Commands {
		if strings.TrimSpace(cmd.Name) == "" {
			return fmt.Errorf("%w: service %q has a command with no name", ErrInvalidDescriptor, name)
		}
		if _, dup := seen[cmd.Name]; dup {
			return fmt.Errorf("%w: service %q declares command %q twice", ErrInvalidDescriptor, name, cmd.Name)
		}
		seen[cmd.Name] = struct{}{}
	}
	return nil
}

// ParseCompleter splits a "service.command" completer reference. Completer
// references are resolved lazily at completion time, never at registration,
// so forward references across services registered later work.
func ParseCompleter(ref string) (service, command string, ok bool) {
	service, command, ok = strings.Cut(ref, ".")
	if !ok || strings.TrimSpace(service) == "" || strings.TrimSpace(command) == "" {
		return "", "", false
	}
	return service, command, true
}
