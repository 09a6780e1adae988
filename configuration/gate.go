package configuration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/tum-esm/hermes/internal/mlog"
	"github.com/tum-esm/hermes/persistence"
	"github.com/tum-esm/hermes/queue"
	"go.uber.org/multierr"
)

// Procedure applies a configuration change to a station.
type Procedure interface {
	// Apply applies the requested configuration.
	//
	// It may modify the configuration document. If it returns an error, the
	// document is restored to its previous content.
	Apply(ctx context.Context, current Config, req Request) error
}

// Gate applies configuration requests to a station, in order of revision.
//
// Requests with a revision that is not greater than the station's current
// revision are ignored, so the backend may safely deliver the same request
// more than once.
type Gate struct {
	// DataStore holds the station's current revision.
	DataStore persistence.DataStore

	// Reporter is used to report configuration failures to the backend.
	Reporter *queue.Reporter

	// Procedure applies configuration changes.
	Procedure Procedure

	// Path is the location of the station's configuration document.
	Path string

	// Logger is the target for log messages about configuration changes. If
	// it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	// changeM serializes Load() and Apply(). It is held while the procedure
	// runs. Only holders of changeM write current and revision.
	changeM sync.Mutex

	m        sync.RWMutex
	current  Config
	revision uint32
}

// Load reads the station's current configuration.
//
// It must be called before any requests are handled, after any interrupted
// change has been undone with RecoverBackup().
func (g *Gate) Load(ctx context.Context) (Config, error) {
	g.changeM.Lock()
	defer g.changeM.Unlock()

	c, err := ReadFile(g.Path)
	if err != nil {
		return Config{}, err
	}

	r, err := g.DataStore.LoadRevision(ctx)
	if err != nil {
		return Config{}, err
	}

	// A change that was committed to the document but not to the data-store
	// is still a completed change.
	if c.Revision > r {
		if err := g.DataStore.SaveRevision(ctx, c.Revision); err != nil {
			return Config{}, err
		}

		r = c.Revision
	}

	g.set(c, r)

	return c, nil
}

// Current returns the configuration that is currently in force.
//
// It does not wait for a change that is in progress.
func (g *Gate) Current() Config {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.current
}

// Revision returns the station's current revision.
func (g *Gate) Revision() uint32 {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.revision
}

// Handle decodes a configuration request received from the broker and
// applies it.
//
// A request that can not be decoded is reported to the backend as a warning
// and otherwise ignored.
func (g *Gate) Handle(ctx context.Context, payload []byte) (bool, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return false, g.Reporter.Warning(
			ctx,
			"invalid configuration request",
			err.Error(),
		)
	}

	return g.Apply(ctx, req)
}

// Apply applies req if its revision is greater than the current revision.
//
// It returns true if the configuration was changed. If the procedure fails,
// the failure is reported to the backend as an error status message and a
// *ConfigApplyError is returned. Any other error is fatal.
func (g *Gate) Apply(ctx context.Context, req Request) (bool, error) {
	g.changeM.Lock()
	defer g.changeM.Unlock()

	if req.Revision <= g.revision {
		mlog.LogConfigIgnored(g.Logger, req.Revision, g.revision)
		return false, nil
	}

	err := g.apply(ctx, req)
	mlog.LogConfigResult(g.Logger, req.Revision, err)

	if err == nil {
		return true, nil
	}

	var aerr *ConfigApplyError
	if !errors.As(err, &aerr) {
		return false, err
	}

	if err := g.Reporter.Error(
		ctx,
		fmt.Sprintf("unable to apply configuration revision %d", req.Revision),
		fmt.Sprintf(
			"%s, continuing with revision %d and version %s",
			aerr.Cause,
			g.revision,
			g.current.Version,
		),
	); err != nil {
		return false, err
	}

	return false, aerr
}

// apply runs the procedure, restoring the configuration document if it
// fails.
func (g *Gate) apply(ctx context.Context, req Request) (err error) {
	guard, err := Backup(g.Path)
	if err != nil {
		return &ConfigApplyError{
			Revision: req.Revision,
			Cause:    fmt.Errorf("unable to back up configuration: %w", err),
		}
	}

	defer func() {
		err = multierr.Append(err, guard.Release())
	}()

	if err := g.run(ctx, req); err != nil {
		return &ConfigApplyError{
			Revision: req.Revision,
			Cause:    err,
		}
	}

	// The backup is discarded before the revision is saved. Load() reconciles
	// the two if the process stops in between.
	if err := guard.Commit(); err != nil {
		return err
	}

	if err := g.DataStore.SaveRevision(ctx, req.Revision); err != nil {
		return err
	}

	g.set(req.Config(), req.Revision)

	return nil
}

// set replaces the configuration in force.
//
// It assumes g.changeM is already locked.
func (g *Gate) set(c Config, r uint32) {
	g.m.Lock()
	defer g.m.Unlock()

	g.current = c
	g.revision = r
}

// run invokes the procedure, converting a panic into an error.
func (g *Gate) run(ctx context.Context, req Request) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("configuration procedure panicked: %v", v)
		}
	}()

	return g.Procedure.Apply(ctx, g.current, req)
}
