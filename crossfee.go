package crossfee

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/permadao/crossfee/common"
	"github.com/permadao/crossfee/config"
)

var log = common.NewLog("crossfee")

// CrossFee is one domain endpoint of the fee-debt protocol. On the
// canonical domain (hub) it hosts the authoritative ledger and the vault;
// on a spoke it hosts the local reward accrual. The bridge endpoint and the
// message inbox run on both.
type CrossFee struct {
	domainId   uint64
	canonical  bool
	senderAddr string // our coordinator address, the credential peers pin for us
	kafkaUri   string
	adminKey   string

	store     *Store
	wdb       *Wdb
	registry  *Registry
	cache     *Cache
	config    *config.Config
	emission  EmissionSchedule
	transport Transport
	events    *KWriter

	engine    *gin.Engine
	scheduler *gocron.Scheduler

	dispatchLocker sync.Mutex
	ledgerLocker   sync.Mutex
	bridgeLocker   sync.Mutex

	nowFn func() time.Time
}

func New(
	boltDirPath, mysqlDsn string, sqliteDir string, useSqlite bool,
	configDsn string,
	domainId uint64, canonical bool, senderAddr string,
	kafkaUri, adminKey string,
	useS3 bool, s3AccKey, s3SecretKey, s3BucketPrefix, s3Region, s3Endpoint string,
	useAliyun bool, aliyunEndpoint, aliyunAccKey, aliyunSecretKey, aliyunPrefix string,
	useMongoDb bool, mongoUri string,
) *CrossFee {
	var err error
	KVDb := &Store{}
	switch {
	case useS3:
		KVDb, err = NewS3Store(s3AccKey, s3SecretKey, s3Region, s3BucketPrefix, s3Endpoint)
	case useAliyun:
		KVDb, err = NewAliyunStore(aliyunEndpoint, aliyunAccKey, aliyunSecretKey, aliyunPrefix)
	case useMongoDb:
		KVDb, err = NewMongoDBStore(context.Background(), mongoUri)
	default:
		KVDb, err = NewBoltStore(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mysqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	registry, err := NewRegistry(wdb)
	if err != nil {
		panic(err)
	}
	cache, err := NewCache()
	if err != nil {
		panic(err)
	}
	cfg := config.New(configDsn, sqliteDir, useSqlite)

	var transport Transport
	var events *KWriter
	if kafkaUri != "" {
		transport = NewKafkaTransport(kafkaUri)
		events, err = NewKWriter(EventTopic, kafkaUri)
		if err != nil {
			panic(err)
		}
	}

	s := &CrossFee{
		domainId:   domainId,
		canonical:  canonical,
		senderAddr: senderAddr,
		kafkaUri:   kafkaUri,
		adminKey:   adminKey,
		store:      KVDb,
		wdb:        wdb,
		registry:   registry,
		cache:      cache,
		config:     cfg,
		transport:  transport,
		events:     events,
		engine:     gin.Default(),
		scheduler:  gocron.NewScheduler(time.UTC),
		nowFn:      time.Now,
	}
	s.emission = NewBpsSchedule(cfg)
	return s
}

func (s *CrossFee) Run(port string) {
	s.config.Run()
	go s.runAPI(port)
	go s.runJobs()
	if s.kafkaUri != "" {
		go s.runTransport()
	}
	common.NewMetricServer()
}

func (s *CrossFee) Close() {
	s.scheduler.Stop()
	s.config.Close()
	if s.events != nil {
		s.events.Close()
	}
	s.wdb.Close()
	if err := s.store.Close(); err != nil {
		log.Error("store close", "err", err)
	}
	log.Info("crossfee closed")
}
