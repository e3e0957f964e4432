package crossfee

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/permadao/crossfee/rawdb"
	"github.com/permadao/crossfee/schema"
)

type Store struct {
	KVDb rawdb.KeyValueDB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	boltDb, err := rawdb.NewBoltDB(boltDirPath)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: boltDb}, nil
}

func NewS3Store(accKey, secretKey, region, bucketPrefix, endpoint string) (*Store, error) {
	s3Db, err := rawdb.NewS3DB(accKey, secretKey, region, bucketPrefix, endpoint)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: s3Db}, nil
}

func NewAliyunStore(endpoint, accKey, secretKey, bucketPrefix string) (*Store, error) {
	aliyunDb, err := rawdb.NewAliyunDB(endpoint, accKey, secretKey, bucketPrefix)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: aliyunDb}, nil
}

func NewMongoDBStore(ctx context.Context, uri string) (*Store, error) {
	mongoDb, err := rawdb.NewMongoDB(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: mongoDb}, nil
}

func (s *Store) Close() error {
	return s.KVDb.Close()
}

// dead-lettered envelope payloads

func (s *Store) SaveFailedPayload(sourceDomainId uint64, sourceAddress string, nonce uint64, payload []byte) error {
	key := schema.FailedPayloadKey(sourceDomainId, sourceAddress, nonce)
	return s.KVDb.Put(schema.FailedPayloadBucket, key, payload)
}

func (s *Store) LoadFailedPayload(sourceDomainId uint64, sourceAddress string, nonce uint64) ([]byte, error) {
	key := schema.FailedPayloadKey(sourceDomainId, sourceAddress, nonce)
	return s.KVDb.Get(schema.FailedPayloadBucket, key)
}

func (s *Store) DelFailedPayload(sourceDomainId uint64, sourceAddress string, nonce uint64) error {
	key := schema.FailedPayloadKey(sourceDomainId, sourceAddress, nonce)
	return s.KVDb.Delete(schema.FailedPayloadBucket, key)
}

// inbound nonce watermarks, highest consumed nonce per (domain, sender)

func nonceKey(domainId uint64, addr string) string {
	return fmt.Sprintf("%d-%s", domainId, addr)
}

func (s *Store) SaveNonceWatermark(domainId uint64, addr string, nonce uint64) error {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, nonce)
	return s.KVDb.Put(schema.NonceBucket, nonceKey(domainId, addr), val)
}

func (s *Store) LoadNonceWatermark(domainId uint64, addr string) (nonce uint64, ok bool) {
	data, err := s.KVDb.Get(schema.NonceBucket, nonceKey(domainId, addr))
	if err != nil || len(data) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(data), true
}

// outbound nonce counter per destination domain

func (s *Store) NextOutboundNonce(destDomainId uint64) (uint64, error) {
	key := fmt.Sprintf("%d", destDomainId)
	next := uint64(1)
	if data, err := s.KVDb.Get(schema.OutboundNonceBucket, key); err == nil && len(data) == 8 {
		next = binary.BigEndian.Uint64(data) + 1
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, next)
	if err := s.KVDb.Put(schema.OutboundNonceBucket, key, val); err != nil {
		return 0, err
	}
	return next, nil
}
