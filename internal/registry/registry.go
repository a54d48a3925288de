package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/danmuck/nexusctl/internal/logging"
)

var log = logging.New("registry")

type entry struct {
	desc    ServiceDescriptor
	handler Handler
}

// Registry maps service names to handlers and preserves registration order
// for enumeration. Registration happens once at startup; after Seal the
// structure is immutable and the read path needs no locking guarantees beyond
// that immutability.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
	sealed  bool
}

func New() *Registry {
	return &Registry{
		index: make(map[string]int),
	}
}

// Register inserts a handler under its descriptor name. A second registration
// under an existing name fails and leaves the registry unchanged.
func (r *Registry) Register(h Handler) error {
	desc := h.Descriptor()
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	if _, exists := r.index[desc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateService, desc.Name)
	}
	r.index[desc.Name] = len(r.entries)
	r.entries = append(r.entries, entry{desc: desc, handler: h})
	log.Debug().Str("service", desc.Name).Int("commands", len(desc.Commands)).Msg("service registered")
	return nil
}

// Seal closes the registry against further registration. Called before the
// registry accepts any traffic.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	log.Info().Int("services", len(r.entries)).Msg("registry sealed")
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrServiceNotFound, name)
	}
	return r.entries[i].handler, nil
}

// ListAll returns every service descriptor in registration order.
func (r *Registry) ListAll() []ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceDescriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.desc
	}
	return out
}

// Dispatch resolves service and command, enforces declared arity, and only
// then invokes the handler. A failed resolution or arity check never executes
// user command logic. Handler failures come back as *CommandError with the
// original message text intact.
func (r *Registry) Dispatch(ctx context.Context, service, command string, args []string) (string, error) {
	r.mu.RLock()
	i, ok := r.index[service]
	if !ok {
		r.mu.RUnlock()
		return "", fmt.Errorf("%w %q", ErrServiceNotFound, service)
	}
	e := r.entries[i]
	r.mu.RUnlock()

	cmd, ok := e.desc.Command(command)
	if !ok {
		return "", fmt.Errorf("%w %q on service %q", ErrCommandNotFound, command, service)
	}
	if len(args) != len(cmd.Params) {
		return "", &ArityError{
			Service:  service,
			Command:  command,
			Expected: len(cmd.Params),
			Got:      len(args),
		}
	}

	out, err := e.handler.Execute(ctx, command, args)
	if err != nil {
		log.Debug().Str("service", service).Str("command", command).Err(err).Msg("command failed")
		return "", &CommandError{Service: service, Command: command, Message: err.Error()}
	}
	return out, nil
}
