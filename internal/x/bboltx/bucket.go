package bboltx

import (
	"encoding/binary"

	"go.etcd.io/bbolt"
)

// BucketParent is an interface for things that contain buckets.
type BucketParent interface {
	CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error)
	Bucket([]byte) *bbolt.Bucket
}

// CreateBucketIfNotExists creates nested buckets with names given by the
// elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	Must(b.Put(k, v))
}

// Delete removes a key from a bucket.
func Delete(b *bbolt.Bucket, k []byte) {
	Must(b.Delete(k))
}

// NextSequence returns the next value of the bucket's auto-incrementing
// sequence.
//
// The sequence is persisted with the bucket, so values are never reused even
// if the keys they were used for are deleted.
func NextSequence(b *bbolt.Bucket) uint64 {
	n, err := b.NextSequence()
	Must(err)
	return n
}

// Uint64Key returns the big-endian encoding of n, which sorts in the same order
// as n itself.
func Uint64Key(n uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], n)
	return k[:]
}

// ParseUint64Key is the inverse of Uint64Key().
func ParseUint64Key(k []byte) uint64 {
	if len(k) != 8 {
		panic("key must be exactly 8 bytes")
	}

	return binary.BigEndian.Uint64(k)
}

// PutUint32 writes an unsigned 32-bit integer to a bucket.
func PutUint32(b *bbolt.Bucket, k []byte, v uint32) {
	var data [4]byte
	binary.BigEndian.PutUint32(data[:], v)
	Put(b, k, data[:])
}

// GetUint32 reads an unsigned 32-bit integer from a bucket.
//
// It returns zero if the key is not present.
func GetUint32(b *bbolt.Bucket, k []byte) uint32 {
	if b == nil {
		return 0
	}

	data := b.Get(k)
	if data == nil {
		return 0
	}

	return binary.BigEndian.Uint32(data)
}
