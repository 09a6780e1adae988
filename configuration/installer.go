package configuration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

// Upgrader installs a different version of the station software.
type Upgrader interface {
	// Upgrade installs the software version to, replacing the version from.
	Upgrade(ctx context.Context, from, to string) error
}

// Installer is the default Procedure. It writes the requested configuration
// to the configuration document and optionally verifies it by running a
// self-test.
type Installer struct {
	// Path is the location of the station's configuration document.
	Path string

	// SelfTest is the command, and its arguments, used to verify the new
	// configuration. The path to the configuration document is passed in the
	// HERMES_CONFIG_PATH environment variable. If it is empty, no self-test is
	// performed.
	SelfTest []string

	// Upgrader installs new software versions. If it is nil, requests that
	// change the software version fail.
	Upgrader Upgrader

	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger
}

// Apply writes the requested configuration to the document and verifies it.
func (i *Installer) Apply(ctx context.Context, current Config, req Request) error {
	next := req.Config()

	if next.Version != current.Version {
		if i.Upgrader == nil {
			return fmt.Errorf(
				"changing version from %s to %s is not supported by this station",
				current.Version,
				next.Version,
			)
		}

		logging.Log(i.Logger, "upgrading from version %s to %s", current.Version, next.Version)

		if err := i.Upgrader.Upgrade(ctx, current.Version, next.Version); err != nil {
			return fmt.Errorf("unable to upgrade to version %s: %w", next.Version, err)
		}
	}

	logging.Log(i.Logger, "writing configuration revision %d to %s", next.Revision, i.Path)

	if err := WriteFile(i.Path, next); err != nil {
		return err
	}

	return i.selfTest(ctx)
}

// selfTest runs the self-test command, if any.
func (i *Installer) selfTest(ctx context.Context) error {
	if len(i.SelfTest) == 0 {
		return nil
	}

	logging.Log(i.Logger, "running self-test: %s", strings.Join(i.SelfTest, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, i.SelfTest[0], i.SelfTest[1:]...)
	cmd.Env = append(os.Environ(), "HERMES_CONFIG_PATH="+i.Path)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(out.String())
		if output == "" {
			return fmt.Errorf("self-test failed: %w", err)
		}

		return fmt.Errorf("self-test failed: %w: %s", err, output)
	}

	return nil
}
