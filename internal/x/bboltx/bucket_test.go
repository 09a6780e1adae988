package bboltx_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/tum-esm/hermes/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

var _ = Describe("bucket helpers", func() {
	var db *bbolt.DB

	BeforeEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var err error
		db, err = Open(ctx, filepath.Join(GinkgoT().TempDir(), "test.boltdb"), 0, nil)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
	})

	It("creates and reads nested buckets", func() {
		Update(db, func(tx *bbolt.Tx) {
			b := CreateBucketIfNotExists(tx, []byte("a"), []byte("b"))
			Put(b, []byte("k"), []byte("v"))
		})

		View(db, func(tx *bbolt.Tx) {
			b := tx.Bucket([]byte("a")).Bucket([]byte("b"))
			Expect(b.Get([]byte("k"))).To(Equal([]byte("v")))
			Expect(tx.Bucket([]byte("a")).Bucket([]byte("x"))).To(BeNil())
		})
	})

	It("never reuses sequence numbers after deletion", func() {
		var first, second uint64

		Update(db, func(tx *bbolt.Tx) {
			b := CreateBucketIfNotExists(tx, []byte("seq"))
			first = NextSequence(b)
			Put(b, Uint64Key(first), nil)
			Delete(b, Uint64Key(first))
		})

		Update(db, func(tx *bbolt.Tx) {
			b := CreateBucketIfNotExists(tx, []byte("seq"))
			second = NextSequence(b)
		})

		Expect(second).To(BeNumerically(">", first))
	})

	It("round-trips 32-bit values", func() {
		Update(db, func(tx *bbolt.Tx) {
			b := CreateBucketIfNotExists(tx, []byte("meta"))
			Expect(GetUint32(b, []byte("n"))).To(BeZero())
			PutUint32(b, []byte("n"), 42)
		})

		View(db, func(tx *bbolt.Tx) {
			Expect(GetUint32(tx.Bucket([]byte("meta")), []byte("n"))).To(BeEquivalentTo(42))
		})
	})

	It("rolls back the transaction when fn panics via Must()", func() {
		cause := errors.New("<error>")

		err := func() (err error) {
			defer Recover(&err)

			Update(db, func(tx *bbolt.Tx) {
				CreateBucketIfNotExists(tx, []byte("rollback"))
				Must(cause)
			})

			return nil
		}()
		Expect(err).To(Equal(cause))

		View(db, func(tx *bbolt.Tx) {
			Expect(tx.Bucket([]byte("rollback"))).To(BeNil())
		})
	})
})

var _ = Describe("func Uint64Key()", func() {
	It("sorts in numeric order", func() {
		Expect(bytes.Compare(Uint64Key(255), Uint64Key(256))).To(Equal(-1))
		Expect(ParseUint64Key(Uint64Key(1 << 40))).To(BeEquivalentTo(1 << 40))
	})
})

var _ = Describe("func Recover()", func() {
	It("re-panics with values that were not raised by Must()", func() {
		Expect(func() {
			var err error
			defer Recover(&err)
			panic("<value>")
		}).To(PanicWith("<value>"))
	})
})

var _ = Describe("func Open()", func() {
	It("returns context.DeadlineExceeded if the file is locked", func() {
		path := filepath.Join(GinkgoT().TempDir(), "locked.boltdb")

		db, err := Open(context.Background(), path, 0, nil)
		Expect(err).ShouldNot(HaveOccurred())
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = Open(ctx, path, 0, nil)
		Expect(err).To(Equal(context.DeadlineExceeded))
	})
})
