package queue_test

import (
	"context"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
	"github.com/tum-esm/hermes/persistence/memorypersistence"
	queuepkg "github.com/tum-esm/hermes/queue"
)

var _ = Describe("type Compactor", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		ds        persistence.DataStore
		queue     *queuepkg.Queue
		logger    *logging.BufferedLogger
		compactor *queuepkg.Compactor
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		var err error
		ds, err = (&memorypersistence.Provider{}).Open(ctx, "<station>")
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(func() {
			ds.Close() // nolint:errcheck // some tests close the data-store
		})

		queue = &queuepkg.Queue{
			DataStore: ds,
			Logger:    logging.SilentLogger,
		}

		logger = &logging.BufferedLogger{}

		compactor = &queuepkg.Compactor{
			DataStore: ds,
			Interval:  time.Hour,
			Logger:    logger,
		}
	})

	enqueue := func(s message.Status) message.Message {
		m, err := queue.Enqueue(ctx, message.StatusBody{
			Severity: message.Info,
			Subject:  "startup",
			Details:  "station started",
		})
		Expect(err).ShouldNot(HaveOccurred())

		if s != message.Pending {
			m, err = queue.Advance(ctx, m.Header.ID, s)
			Expect(err).ShouldNot(HaveOccurred())
		}

		return m
	}

	Describe("func Run()", func() {
		It("removes delivered messages that are older than the retention period", func() {
			delivered := enqueue(message.Delivered)
			sent := enqueue(message.Sent)

			time.Sleep(5 * time.Millisecond)

			result := make(chan error, 1)
			go func() {
				result <- compactor.Run(ctx)
			}()

			Eventually(logger.Messages).Should(ContainElement(
				logging.BufferedLogMessage{
					Message: "compaction removed 1 delivered message(s)",
				},
			))

			cancel()
			Eventually(result).Should(Receive(Equal(context.Canceled)))

			ctx := context.Background()

			err := ds.Remove(ctx, delivered.Header.ID)
			Expect(err).To(BeAssignableToTypeOf(persistence.UnknownMessageError{}))

			err = ds.Remove(ctx, sent.Header.ID)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("keeps delivered messages within the retention period", func() {
			delivered := enqueue(message.Delivered)
			compactor.Retention = time.Hour
			logger.CaptureDebug = true

			result := make(chan error, 1)
			go func() {
				result <- compactor.Run(ctx)
			}()

			Eventually(logger.Messages).Should(ContainElement(
				logging.BufferedLogMessage{
					Message: "compaction completed, nothing to remove",
					IsDebug: true,
				},
			))

			cancel()
			Eventually(result).Should(Receive(Equal(context.Canceled)))

			err := ds.Remove(context.Background(), delivered.Header.ID)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("returns an error if the data-store is closed", func() {
			Expect(ds.Close()).To(Succeed())

			err := compactor.Run(ctx)
			Expect(err).To(Equal(persistence.ErrDataStoreClosed))
		})
	})
})
