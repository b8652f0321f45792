// Package lifecycle starts long-lived components in order and stops them in reverse.
package lifecycle

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name string
	Component
}

type Runtime struct {
	components []namedComponent
	logger     *log.Entry
}

func NewRuntime() *Runtime {
	return &Runtime{logger: log.WithField("scope", "runtime")}
}

// Register appends a component. Nil components are ignored.
func (r *Runtime) Register(name string, component Component) *Runtime {
	if component == nil {
		return r
	}
	r.components = append(r.components, namedComponent{name: name, Component: component})
	return r
}

func (r *Runtime) Start(ctx context.Context) error {
	started := make([]namedComponent, 0, len(r.components))
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			if stopErr := r.stop(ctx, started); stopErr != nil {
				r.logger.WithError(stopErr).Warn("cant roll back started components")
			}
			return errors.Wrapf(err, "start %s", component.name)
		}
		r.logger.WithField("component", component.name).Debug("started")
		started = append(started, component)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return r.stop(ctx, r.components)
}

func (r *Runtime) stop(ctx context.Context, components []namedComponent) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		if err := component.Stop(ctx); err != nil {
			stopErr = multierr.Append(stopErr, errors.Wrapf(err, "stop %s", component.name))
			continue
		}
		r.logger.WithField("component", component.name).Debug("stopped")
	}
	return stopErr
}
