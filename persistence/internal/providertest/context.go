package providertest

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/persistence"
)

const (
	// DefaultStation is the station identifier used by the tests.
	DefaultStation = "<station>"

	// OtherStation is a second station identifier, used to verify that
	// stations are isolated from one another.
	OtherStation = "<other-station>"
)

// Out is a container for values that are provided by the provider-specific
// initialization code to the test suite.
type Out struct {
	// NewProvider is a function that creates a new provider.
	NewProvider func() (p persistence.Provider, close func())

	// IsShared returns true if multiple instances of the same provider access
	// the same data.
	IsShared bool

	// TestTimeout is the maximum duration allowed for each test.
	TestTimeout time.Duration
}

// DefaultTestTimeout is the default test timeout.
const DefaultTestTimeout = 10 * time.Second

// TestContext encapsulates the shared test context passed to the tests for each
// provider sub-system.
type TestContext struct {
	Context context.Context
	Out     Out
}

// SetupProvider creates a new provider and registers its cleanup.
func (tc *TestContext) SetupProvider() persistence.Provider {
	p, close := tc.Out.NewProvider()
	if close != nil {
		ginkgo.DeferCleanup(close)
	}

	return p
}

// OpenDataStore opens the data-store for a station and registers its cleanup.
func (tc *TestContext) OpenDataStore(
	p persistence.Provider,
	station string,
) persistence.DataStore {
	ds, err := p.Open(tc.Context, station)
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

	ginkgo.DeferCleanup(func() {
		ds.Close() // nolint:errcheck
	})

	return ds
}

// SetupDataStore creates a new provider and opens the data-store for
// DefaultStation.
func (tc *TestContext) SetupDataStore() persistence.DataStore {
	return tc.OpenDataStore(
		tc.SetupProvider(),
		DefaultStation,
	)
}
