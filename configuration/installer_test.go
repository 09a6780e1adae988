package configuration_test

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/tum-esm/hermes/configuration"
)

type upgraderStub struct {
	UpgradeFunc func(ctx context.Context, from, to string) error
}

func (u *upgraderStub) Upgrade(ctx context.Context, from, to string) error {
	if u.UpgradeFunc != nil {
		return u.UpgradeFunc(ctx, from, to)
	}

	return nil
}

var _ = Describe("type Installer", func() {
	var (
		ctx       context.Context
		path      string
		installer *Installer
		req       Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		path = writeConfig(validConfig(5))

		installer = &Installer{
			Path:   path,
			Logger: logging.SilentLogger,
		}

		req = Request{
			Revision:      6,
			Configuration: validConfig(0),
		}
		req.Configuration.Measurement.PumpedLitresPerMinute = 0.75
	})

	Describe("func Apply()", func() {
		It("writes the requested configuration to the document", func() {
			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).ShouldNot(HaveOccurred())

			c, err := ReadFile(path)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c).To(Equal(req.Config()))
		})

		It("runs the self-test against the new document", func() {
			marker := filepath.Join(GinkgoT().TempDir(), "marker")
			installer.SelfTest = []string{
				"sh", "-c", `grep -q '"revision": 6' "$HERMES_CONFIG_PATH" && touch ` + marker,
			}

			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(marker).To(BeAnExistingFile())
		})

		It("returns an error that includes the self-test output if it fails", func() {
			installer.SelfTest = []string{"sh", "-c", "echo 'sensor not found'; exit 1"}

			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).To(MatchError("self-test failed: exit status 1: sensor not found"))
		})

		It("returns an error if the version changes and there is no upgrader", func() {
			req.Configuration.Version = "0.2.0"

			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).To(MatchError("changing version from 0.1.0 to 0.2.0 is not supported by this station"))

			c, err := ReadFile(path)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c).To(Equal(validConfig(5)))
		})

		It("upgrades the software if the version changes", func() {
			req.Configuration.Version = "0.2.0"

			var from, to string
			installer.Upgrader = &upgraderStub{
				UpgradeFunc: func(_ context.Context, f, t string) error {
					from, to = f, t
					return nil
				},
			}

			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(from).To(Equal("0.1.0"))
			Expect(to).To(Equal("0.2.0"))
		})

		It("returns an error if the upgrade fails", func() {
			req.Configuration.Version = "0.2.0"
			installer.Upgrader = &upgraderStub{
				UpgradeFunc: func(context.Context, string, string) error {
					return errors.New("<error>")
				},
			}

			err := installer.Apply(ctx, validConfig(5), req)
			Expect(err).To(MatchError("unable to upgrade to version 0.2.0: <error>"))
		})
	})
})
