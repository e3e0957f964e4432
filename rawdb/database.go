package rawdb

import (
	"github.com/permadao/crossfee/common"
)

var log = common.NewLog("crossfee")

// KeyValueDB is the raw payload store behind Store: dead-lettered envelope
// bytes and nonce watermarks. Selectable backend, bolt by default.
type KeyValueDB interface {
	Put(bucket, key string, value []byte) (err error)

	Get(bucket, key string) (data []byte, err error)

	GetAllKey(bucket string) (keys []string, err error)

	Delete(bucket, key string) (err error)

	Close() (err error)

	Type() string

	Exist(bucket, key string) bool
}
