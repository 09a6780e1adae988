package providertest

import (
	"context"
	"time"

	"github.com/onsi/ginkgo/v2"
)

// Declare declares generic behavioral tests for a specific persistence provider
// implementation.
func Declare(
	before func(context.Context) Out,
	after func(),
) {
	var (
		tc     TestContext
		cancel context.CancelFunc
	)

	ginkgo.Context("standard provider test suite", func() {
		ginkgo.BeforeEach(func() {
			setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelSetup()

			tc.Out = before(setupCtx)

			if tc.Out.TestTimeout <= 0 {
				tc.Out.TestTimeout = DefaultTestTimeout
			}

			tc.Context, cancel = context.WithTimeout(context.Background(), tc.Out.TestTimeout)
		})

		ginkgo.AfterEach(func() {
			if after != nil {
				after()
			}

			cancel()
		})

		declareProviderTests(&tc)
		declareDataStoreTests(&tc)
		declareMessageTests(&tc)
		declareRevisionTests(&tc)
		declareCompactTests(&tc)
	})
}
