package registry

import (
	"context"
	"fmt"
)

// Handler executes commands for one service. Implementations own their
// internal state and are individually responsible for making concurrent
// invocations safe; the registry only guarantees that its own structure never
// mutates after sealing.
type Handler interface {
	Descriptor() ServiceDescriptor
	Execute(ctx context.Context, command string, args []string) (string, error)
}

// CommandFunc is one command body taking positional string arguments.
type CommandFunc func(ctx context.Context, args []string) (string, error)

// Service is a Handler assembled from a declarative command table.
type Service struct {
	desc ServiceDescriptor
	fns  map[string]CommandFunc
}

func (s *Service) Descriptor() ServiceDescriptor { return s.desc }

func (s *Service) Execute(ctx context.Context, command string, args []string) (string, error) {
	fn, ok := s.fns[command]
	if !ok {
		return "", fmt.Errorf("%w %q on service %q", ErrCommandNotFound, command, s.desc.Name)
	}
	return fn(ctx, args)
}

// Param declares a positional parameter with a display label and doc line.
func Param(label, doc string) ParamDescriptor {
	return ParamDescriptor{Label: label, Doc: doc}
}

// ParamCompleted declares a parameter whose completion candidates come from
// the referenced zero-argument command.
func ParamCompleted(label, doc, completer string) ParamDescriptor {
	return ParamDescriptor{Label: label, Doc: doc, Completer: completer}
}

// Builder assembles a Service command table. The first error sticks and is
// reported by Build.
type Builder struct {
	desc ServiceDescriptor
	fns  map[string]CommandFunc
	err  error
}

// NewService starts a service declaration.
func NewService(name, doc string) *Builder {
	return &Builder{
		desc: ServiceDescriptor{Name: name, Doc: doc},
		fns:  make(map[string]CommandFunc),
	}
}

// Command declares one command in order. Params declare the expected
// positional arguments; dispatch enforces the count before fn runs.
func (b *Builder) Command(name, doc string, fn CommandFunc, params ...ParamDescriptor) *Builder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("%w: command %q has no body", ErrInvalidDescriptor, name)
		return b
	}
	if _, dup := b.fns[name]; dup {
		b.err = fmt.Errorf("%w: service %q declares command %q twice", ErrInvalidDescriptor, b.desc.Name, name)
		return b
	}
	b.desc.Commands = append(b.desc.Commands, CommandDescriptor{
		Name:   name,
		Doc:    doc,
		Params: params,
	})
	b.fns[name] = fn
	return b
}

func (b *Builder) Build() (*Service, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.desc.Validate(); err != nil {
		return nil, err
	}
	return &Service{desc: b.desc, fns: b.fns}, nil
}

// MustBuild is Build for static service tables declared at program start.
func (b *Builder) MustBuild() *Service {
	svc, err := b.Build()
	if err != nil {
		panic(err)
	}
	return svc
}
