package hermes_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/tum-esm/hermes"
	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
	"github.com/tum-esm/hermes/persistence/memorypersistence"
	"github.com/tum-esm/hermes/queue"
	"github.com/tum-esm/hermes/transport"
	"github.com/tum-esm/hermes/transport/transporttest"
)

const stationID = "station-1"

func validConfig(revision uint32) configuration.Config {
	return configuration.Config{
		Revision: revision,
		Version:  "0.1.0",
		General: configuration.General{
			StationName: stationID,
		},
		Measurement: configuration.Measurement{
			Timing: configuration.Timing{
				SecondsPerMeasurement:         10,
				SecondsPerMeasurementInterval: 120,
			},
			PumpedLitresPerMinute: 0.5,
			AirInlets: []configuration.AirInlet{
				{ValveNumber: 1, Direction: 300, TubeLength: 50},
			},
		},
		Hardware: configuration.Hardware{
			InnerTubeDiameterMillimetres: 5,
		},
	}
}

// procedureStub is a test implementation of configuration.Procedure.
type procedureStub struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (p *procedureStub) Apply(context.Context, configuration.Config, configuration.Request) error {
	p.calls.Add(1)

	if p.fail.Load() {
		return errors.New("<error>")
	}

	return nil
}

// produce returns a producer that enqueues each of the given readings, then
// waits for ctx to be canceled.
func produce(readings ...message.Reading) Producer {
	return ProducerFunc(func(
		ctx context.Context,
		q *queue.Queue,
		_ *queue.Reporter,
		_ func() configuration.Config,
	) error {
		for _, r := range readings {
			if _, err := q.Enqueue(ctx, message.MeasurementBody{
				Timestamp: time.Now().Unix(),
				Value:     r,
			}); err != nil {
				return err
			}
		}

		<-ctx.Done()
		return ctx.Err()
	})
}

func co2(ppm float64) message.CO2Reading {
	return message.CO2Reading{
		Raw:         ppm,
		Compensated: ppm,
		Filtered:    ppm,
	}
}

var _ = Describe("type Station", func() {
	var (
		ctx        context.Context
		cancel     context.CancelFunc
		broker     *transporttest.Broker
		ingestor   *transporttest.Ingestor
		provider   *memorypersistence.Provider
		configPath string
		topics     transport.Topics
		options    []StationOption
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		broker = &transporttest.Broker{}
		broker.SetOnline(true)

		ingestor = &transporttest.Ingestor{Broker: broker}
		provider = &memorypersistence.Provider{}

		configPath = filepath.Join(GinkgoT().TempDir(), "config.json")
		Expect(configuration.WriteFile(configPath, validConfig(5))).To(Succeed())

		var err error
		topics, err = transport.NewTopics("/hermes", stationID)
		Expect(err).ShouldNot(HaveOccurred())

		options = []StationOption{
			WithPersistence(provider),
			WithTransport(broker.NewTransport()),
			WithBaseTopic("/hermes"),
			WithConfigPath(configPath),
			WithBackoffStrategy(backoff.Constant(5 * time.Millisecond)),
			WithRetryInterval(10 * time.Millisecond),
			WithAckTimeout(100 * time.Millisecond),
			WithLogger(logging.SilentLogger),
		}
	})

	start := func(extra ...StationOption) <-chan error {
		result := make(chan error, 1)
		opts := append(append([]StationOption(nil), options...), extra...)

		go func() {
			result <- Run(ctx, stationID, opts...)
		}()

		return result
	}

	// stop cancels the station's context and waits for Run() to return.
	stop := func(result <-chan error) {
		cancel()
		Eventually(result).Should(Receive(Equal(context.Canceled)))
	}

	revision := func() uint32 {
		ds, err := provider.Open(context.Background(), stationID)
		Expect(err).ShouldNot(HaveOccurred())
		defer ds.Close()

		r, err := ds.LoadRevision(context.Background())
		Expect(err).ShouldNot(HaveOccurred())

		return r
	}

	sendConfig := func(r uint32, resend bool) {
		Eventually(func() bool {
			return broker.IsSubscribed(topics.Config())
		}).Should(BeTrue())

		data, err := json.Marshal(validConfig(0))
		Expect(err).ShouldNot(HaveOccurred())

		Expect(ingestor.SendConfig(topics, r, data, resend)).To(Succeed())
	}

	statuses := func() []message.Message {
		messages, err := ingestor.Unique(topics.Status())
		Expect(err).ShouldNot(HaveOccurred())
		return messages
	}

	Describe("func Run()", func() {
		It("returns an error if the context is canceled before calling", func() {
			cancel()

			err := Run(ctx, stationID, options...)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("returns an error if the context is canceled while running", func() {
			result := start()

			time.Sleep(20 * time.Millisecond)
			stop(result)
		})

		It("returns an error if the base topic is invalid", func() {
			err := Run(ctx, stationID, append(options, WithBaseTopic("/Hermes"))...)
			Expect(err).To(MatchError(ContainSubstring("base topic")))
		})

		It("returns an error if the station identifier is invalid", func() {
			err := Run(ctx, "x", options...)
			Expect(err).Should(HaveOccurred())
		})

		It("returns an error if the configuration document can not be loaded", func() {
			Expect(os.Remove(configPath)).To(Succeed())

			err := Run(ctx, stationID, options...)
			Expect(err).To(MatchError(HavePrefix("unable to load configuration: ")))
		})

		It("returns an error if the data-store is already open", func() {
			ds, err := provider.Open(ctx, stationID)
			Expect(err).ShouldNot(HaveOccurred())
			defer ds.Close()

			err = Run(ctx, stationID, options...)
			Expect(err).To(MatchError(persistence.ErrDataStoreLocked))
		})

		It("adopts the revision of the configuration document", func() {
			result := start()
			Eventually(func() bool {
				return broker.IsSubscribed(topics.Config())
			}).Should(BeTrue())
			stop(result)

			Expect(revision()).To(BeEquivalentTo(5))
		})

		It("delivers messages that are produced while the broker is offline", func() {
			broker.SetOnline(false)
			result := start(WithProducer(produce(co2(410))))

			Consistently(func() []transporttest.Publication {
				return broker.Published(topics.Measurements())
			}, 50*time.Millisecond).Should(BeEmpty())

			broker.SetOnline(true)

			Eventually(func() ([]message.Message, error) {
				return ingestor.Unique(topics.Measurements())
			}).Should(HaveLen(1))

			messages, err := ingestor.Unique(topics.Measurements())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(messages[0].Header.Revision).To(BeEquivalentTo(5))
			Expect(messages[0].Body).To(Equal(message.MeasurementBody{
				Timestamp: messages[0].Body.(message.MeasurementBody).Timestamp,
				Value:     co2(410),
			}))

			stop(result)
		})

		It("delivers messages in the order they were produced", func() {
			broker.DropAcks(1)
			result := start(WithProducer(produce(co2(401), co2(402), co2(403))))

			Eventually(func() ([]message.Message, error) {
				return ingestor.Unique(topics.Measurements())
			}).Should(HaveLen(3))

			messages, err := ingestor.Unique(topics.Measurements())
			Expect(err).ShouldNot(HaveOccurred())

			for i, m := range messages {
				Expect(m.Body.(message.MeasurementBody).Value).To(Equal(co2(401 + float64(i))))
				if i > 0 {
					Expect(m.Header.ID).To(BeNumerically(">", messages[i-1].Header.ID))
				}
			}

			stop(result)
		})

		It("redelivers messages that were not delivered before the station stopped", func() {
			broker.SetOnline(false)
			result := start(WithProducer(produce(co2(410))))
			time.Sleep(20 * time.Millisecond)
			stop(result)

			broker.SetOnline(true)

			ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
			DeferCleanup(cancel)

			options = append(options, WithTransport(broker.NewTransport()))
			result = start()

			Eventually(func() ([]message.Message, error) {
				return ingestor.Unique(topics.Measurements())
			}).Should(HaveLen(1))

			stop(result)
		})

		It("registers the sender's metrics", func() {
			reg := prometheus.NewRegistry()
			result := start(
				WithMetrics(reg),
				WithProducer(produce(co2(410))),
			)

			Eventually(func() ([]message.Message, error) {
				return ingestor.Unique(topics.Measurements())
			}).Should(HaveLen(1))

			Eventually(func() (int, error) {
				return testutil.GatherAndCount(reg, "hermes_sender_delivered_total")
			}).Should(Equal(1))

			stop(result)
		})

		When("a configuration request is received", func() {
			var procedure *procedureStub

			BeforeEach(func() {
				procedure = &procedureStub{}
				options = append(options, WithProcedure(procedure))
			})

			It("ignores requests that do not advance the revision", func() {
				procedure.fail.Store(true)
				result := start()

				sendConfig(5, false)
				sendConfig(6, false)

				Eventually(statuses).Should(HaveLen(1))
				Expect(procedure.calls.Load()).To(BeEquivalentTo(1))

				m := statuses()[0]
				Expect(m.Header.Revision).To(BeEquivalentTo(5))
				Expect(m.Body).To(Equal(message.StatusBody{
					Severity: message.Error,
					Subject:  "unable to apply configuration revision 6",
					Details:  "<error>, continuing with revision 5 and version 0.1.0",
				}))

				stop(result)
				Expect(revision()).To(BeEquivalentTo(5))

				c, err := configuration.ReadFile(configPath)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(c).To(Equal(validConfig(5)))
			})

			It("keeps running after a failed configuration change", func() {
				procedure.fail.Store(true)
				result := start()

				sendConfig(6, false)
				Eventually(statuses).Should(HaveLen(1))

				procedure.fail.Store(false)
				sendConfig(6, true)

				Eventually(procedure.calls.Load).Should(BeEquivalentTo(2))
				Consistently(result, 20*time.Millisecond).ShouldNot(Receive())

				stop(result)
				Expect(revision()).To(BeEquivalentTo(6))
			})

			It("reports malformed requests as a warning", func() {
				result := start()

				Eventually(func() bool {
					return broker.IsSubscribed(topics.Config())
				}).Should(BeTrue())
				Expect(broker.Deliver(topics.Config(), []byte(`{"revision": 6}`))).To(BeTrue())

				Eventually(statuses).Should(HaveLen(1))
				Expect(statuses()[0].Body.(message.StatusBody).Severity).To(Equal(message.Warning))
				Expect(procedure.calls.Load()).To(BeZero())

				stop(result)
			})

			It("returns ErrRestartRequired after a change when configured to do so", func() {
				result := start(WithRestartOnApply(true))

				sendConfig(6, false)

				Eventually(result).Should(Receive(Equal(ErrRestartRequired)))
				Expect(revision()).To(BeEquivalentTo(6))
			})
		})

		It("writes accepted configurations to the configuration document", func() {
			result := start()

			sendConfig(6, false)

			Eventually(func() (uint32, error) {
				c, err := configuration.ReadFile(configPath)
				return c.Revision, err
			}).Should(BeEquivalentTo(6))

			stop(result)
			Expect(revision()).To(BeEquivalentTo(6))
		})

		It("restores the configuration document if a change was interrupted", func() {
			_, err := configuration.Backup(configPath)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(os.WriteFile(configPath, []byte("{"), 0644)).To(Succeed())

			result := start()

			Eventually(statuses).Should(HaveLen(1))
			m := statuses()[0]
			Expect(m.Body.(message.StatusBody).Severity).To(Equal(message.Warning))
			Expect(m.Body.(message.StatusBody).Subject).To(Equal("configuration restored"))

			c, err := configuration.ReadFile(configPath)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(c).To(Equal(validConfig(5)))

			stop(result)
		})
	})
})
