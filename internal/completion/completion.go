// Package completion classifies a partially typed command line and produces
// candidate words for it. Static positions (service and command names) come
// from the cached service metadata; argument positions declared with a
// completer reference resolve through a nested Execute call whose payload is
// split on commas.
package completion

import (
	"strings"
	"unicode"

	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/protocol/wire"
	"github.com/danmuck/nexusctl/internal/registry"
)

var log = logging.New("completion")

// Builtins are shell-local words offered in the service position.
var Builtins = []string{"help", "quit", "exit"}

// Executor issues the nested Execute call behind a value completer. It is
// expected to enforce its own short deadline; a slow daemon must degrade to
// no candidates, never a stuck prompt.
type Executor interface {
	CompleteExecute(service, command string) (wire.Result, error)
}

// Engine completes one command line at a time against a fixed metadata
// snapshot.
type Engine struct {
	services []registry.ServiceDescriptor
	exec     Executor
}

func New(services []registry.ServiceDescriptor, exec Executor) *Engine {
	return &Engine{services: services, exec: exec}
}

// Complete returns the byte offset where the word under the cursor begins and
// the candidate words for that position. An unknown service or command, a
// parameter without a completer, or a failed nested call all yield no
// candidates.
func (e *Engine) Complete(line string) (start int, candidates []string) {
	start, word := currentWord(line)
	prior := strings.Fields(line[:start])

	switch {
	case len(prior) == 0:
		return start, filterPrefix(e.serviceWords(), word)
	case len(prior) == 1 && prior[0] == "help":
		return start, filterPrefix(e.serviceNames(), word)
	case len(prior) == 1:
		return start, filterPrefix(e.commandNames(prior[0]), word)
	default:
		return start, filterPrefix(e.argValues(prior[0], prior[1], len(prior)-2), word)
	}
}

// Hint names the parameter the cursor is about to fill, as "<label>", or ""
// when no hint applies. Hints only appear at the start of a fresh word.
func (e *Engine) Hint(line string) string {
	if line == "" || !unicode.IsSpace(rune(line[len(line)-1])) {
		return ""
	}
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return ""
	}
	cmd, ok := e.command(tokens[0], tokens[1])
	if !ok {
		return ""
	}
	argIndex := len(tokens) - 2
	if argIndex >= len(cmd.Params) {
		return ""
	}
	return "<" + cmd.Params[argIndex].Label + ">"
}

func (e *Engine) serviceWords() []string {
	out := e.serviceNames()
	return append(out, Builtins...)
}

func (e *Engine) serviceNames() []string {
	out := make([]string, 0, len(e.services))
	for _, svc := range e.services {
		out = append(out, svc.Name)
	}
	return out
}

func (e *Engine) commandNames(service string) []string {
	for _, svc := range e.services {
		if svc.Name != service {
			continue
		}
		out := make([]string, 0, len(svc.Commands))
		for _, cmd := range svc.Commands {
			out = append(out, cmd.Name)
		}
		return out
	}
	return nil
}

func (e *Engine) command(service, command string) (registry.CommandDescriptor, bool) {
	for _, svc := range e.services {
		if svc.Name == service {
			return svc.Command(command)
		}
	}
	return registry.CommandDescriptor{}, false
}

func (e *Engine) argValues(service, command string, argIndex int) []string {
	cmd, ok := e.command(service, command)
	if !ok || argIndex >= len(cmd.Params) {
		return nil
	}
	ref := cmd.Params[argIndex].Completer
	if ref == "" || e.exec == nil {
		return nil
	}
	refService, refCommand, ok := registry.ParseCompleter(ref)
	if !ok {
		log.Debug().Str("completer", ref).Msg("malformed completer reference")
		return nil
	}
	res, err := e.exec.CompleteExecute(refService, refCommand)
	if err != nil {
		log.Debug().Str("completer", ref).Err(err).Msg("completion call failed")
		return nil
	}
	if !res.OK {
		return nil
	}
	return SplitValues(res.Message)
}

// SplitValues turns a completer payload into candidate words: split on
// commas, trim surrounding whitespace, drop empties.
func SplitValues(payload string) []string {
	parts := strings.Split(payload, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// currentWord locates the word under the cursor at end of line.
func currentWord(line string) (start int, word string) {
	start = len(line)
	for start > 0 && !unicode.IsSpace(rune(line[start-1])) {
		start--
	}
	return start, line[start:]
}

func filterPrefix(words []string, prefix string) []string {
	if prefix == "" {
		return words
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			out = append(out, w)
		}
	}
	return out
}
