package config

import (
	"os"
	"path"

	"github.com/permadao/crossfee/common"
	"github.com/permadao/crossfee/config/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var log = common.NewLog("crossfee")

const (
	sqliteName = "config.sqlite"

	DefaultQueueDelaySeconds    = int64(3 * 24 * 60 * 60) // 3 days
	DefaultEpochDurationSeconds = int64(24 * 60 * 60)     // 1 day
	DefaultEmissionRateBps      = int64(10000)            // 1:1
	DefaultInflowLimit          = "1000000000000000000000000"
)

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 10,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect config db success")
	return &Wdb{Db: db}
}

func NewSqliteWdb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.Param{}, &schema.IpRateWhitelist{})
}

func (w *Wdb) GetParam() (param schema.Param, err error) {
	err = w.Db.First(&param).Error
	if err == gorm.ErrRecordNotFound {
		param = schema.Param{
			ID:                   1,
			InflowLimit:          DefaultInflowLimit,
			QueueDelaySeconds:    DefaultQueueDelaySeconds,
			EpochDurationSeconds: DefaultEpochDurationSeconds,
			EmissionRateBps:      DefaultEmissionRateBps,
		}
		return param, nil
	}
	return
}

func (w *Wdb) SaveParam(param schema.Param) error {
	param.ID = 1
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&param).Error
}

func (w *Wdb) GetAllAvailableIpRateWhitelist() ([]schema.IpRateWhitelist, error) {
	res := make([]schema.IpRateWhitelist, 0, 10)
	err := w.Db.Where("available = ?", true).Find(&res).Error
	return res, err
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}
