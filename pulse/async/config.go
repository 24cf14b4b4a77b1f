package async

import (
	"context"
	"io"
	"os"

	"github.com/teranos/lanes/am"
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse/lane"
)

// NewRuntimeFromConfig builds a runtime from cfg: main-loop ownership,
// shutdown timeout, trace destination and declared lanes. Explicit options
// are applied after the ones derived from cfg.
func NewRuntimeFromConfig(cfg *am.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	derived := []Option{WithShutdownTimeout(cfg.Pulse.ShutdownTimeout())}
	if cfg.Pulse.ExternalMainLoop {
		derived = append(derived, WithExternalMainLoop())
	}

	rt := NewRuntime(append(derived, opts...)...)
	if err := rt.ApplyConfig(cfg); err != nil {
		return nil, errors.CombineErrors(err, rt.Close(context.Background()))
	}
	return rt, nil
}

// ApplyConfig brings a running runtime in line with cfg: it toggles the
// trace and registers lanes cfg declares that are not registered yet. Lanes
// are never removed here. It fits am.ConfigWatcher.OnReload.
func (rt *Runtime) ApplyConfig(cfg *am.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := rt.applyTrace(cfg.Trace); err != nil {
		return err
	}

	for _, lc := range cfg.Lanes {
		p, err := lane.ParsePriority(lc.Priority)
		if err != nil {
			return err
		}
		if rt.RegisterLane(lc.Name, p) {
			rt.logger.Pulse("Lane registered from config",
				logger.FieldLane, lc.Name,
				logger.FieldPriority, p.String())
		}
	}
	return nil
}

func (rt *Runtime) applyTrace(tc am.TraceConfig) error {
	if !tc.Enabled {
		if rt.Tracing() {
			rt.DisableTrace()
		}
		return nil
	}

	var w io.Writer = os.Stderr
	var closer io.Closer
	if tc.Path != "" {
		f, err := os.OpenFile(tc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, am.DefaultFilePermissions)
		if err != nil {
			return errors.Wrapf(err, "failed to open trace file %s", tc.Path)
		}
		w, closer = f, f
	}
	rt.setTrace(w, closer)
	return nil
}
