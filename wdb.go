package crossfee

import (
	"os"
	"path"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "crossfee.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	logLevel := logger.Error
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logLevel),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(
		&schema.Domain{},
		&schema.FeeDebtRecord{},
		&schema.EpochCounter{},
		&schema.PendingTransfer{},
		&schema.FailedMessage{},
		&schema.TokenAccount{},
		&schema.Distributor{},
		&schema.MintRate{},
	)
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

// domain registry

func (w *Wdb) UpsertDomain(domain schema.Domain) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain_id"}},
		UpdateAll: true,
	}).Create(&domain).Error
}

func (w *Wdb) GetAllDomains() ([]schema.Domain, error) {
	res := make([]schema.Domain, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

// fee-debt ledger

func (w *Wdb) GetFeeDebt(spokeDomainId uint64) (schema.FeeDebtRecord, error) {
	rec := schema.FeeDebtRecord{}
	err := w.Db.Where("spoke_domain_id = ?", spokeDomainId).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return schema.FeeDebtRecord{SpokeDomainId: spokeDomainId}, nil
	}
	return rec, err
}

func (w *Wdb) AccrueFee(spokeDomainId uint64, amount decimal.Decimal) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		rec := schema.FeeDebtRecord{SpokeDomainId: spokeDomainId}
		if err := tx.FirstOrCreate(&rec, schema.FeeDebtRecord{SpokeDomainId: spokeDomainId}).Error; err != nil {
			return err
		}
		rec.Accrued = rec.Accrued.Add(amount)
		return tx.Save(&rec).Error
	})
}

func (w *Wdb) SettleFee(spokeDomainId uint64, amount decimal.Decimal) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		rec := schema.FeeDebtRecord{SpokeDomainId: spokeDomainId}
		if err := tx.FirstOrCreate(&rec, schema.FeeDebtRecord{SpokeDomainId: spokeDomainId}).Error; err != nil {
			return err
		}
		if rec.Settled.Add(amount).GreaterThan(rec.Accrued) {
			return schema.ErrDebtExceeded
		}
		rec.Settled = rec.Settled.Add(amount)
		return tx.Save(&rec).Error
	})
}

// DistributeFee consumes all settled-but-undistributed debt of one spoke and
// mints mintFn(undistributed) of reward token into the vault, atomically.
func (w *Wdb) DistributeFee(spokeDomainId uint64, mintFn func(undistributed decimal.Decimal) (decimal.Decimal, error)) (undistributed, mintAmount decimal.Decimal, err error) {
	err = w.Db.Transaction(func(tx *gorm.DB) error {
		rec := schema.FeeDebtRecord{}
		if err := tx.Where("spoke_domain_id = ?", spokeDomainId).First(&rec).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return schema.ErrNothingToDistribute
			}
			return err
		}
		undistributed = rec.Settled.Sub(rec.Distributed)
		if undistributed.IsZero() {
			return schema.ErrNothingToDistribute
		}
		var mintErr error
		mintAmount, mintErr = mintFn(undistributed)
		if mintErr != nil {
			return mintErr
		}
		if mintAmount.IsNegative() {
			return schema.ErrNegativeAmount
		}
		if err := addBalanceTx(tx, schema.VaultAccount, mintAmount); err != nil {
			return err
		}
		rec.Distributed = rec.Settled
		return tx.Save(&rec).Error
	})
	return
}

func (w *Wdb) GetAllFeeDebts() ([]schema.FeeDebtRecord, error) {
	res := make([]schema.FeeDebtRecord, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

// epoch counters

func (w *Wdb) GetEpochCounter(epochId uint64) (schema.EpochCounter, error) {
	ec := schema.EpochCounter{}
	err := w.Db.Where("epoch_id = ?", epochId).First(&ec).Error
	if err == gorm.ErrRecordNotFound {
		return schema.EpochCounter{EpochId: epochId}, nil
	}
	return ec, err
}

func addInflowTx(tx *gorm.DB, epochId uint64, amount decimal.Decimal) error {
	ec := schema.EpochCounter{EpochId: epochId}
	if err := tx.FirstOrCreate(&ec, schema.EpochCounter{EpochId: epochId}).Error; err != nil {
		return err
	}
	ec.Inflow = ec.Inflow.Add(amount)
	return tx.Save(&ec).Error
}

func addOutflowTx(tx *gorm.DB, epochId uint64, amount decimal.Decimal) error {
	ec := schema.EpochCounter{EpochId: epochId}
	if err := tx.FirstOrCreate(&ec, schema.EpochCounter{EpochId: epochId}).Error; err != nil {
		return err
	}
	ec.Outflow = ec.Outflow.Add(amount)
	return tx.Save(&ec).Error
}

// pending transfers

func (w *Wdb) InsertPendingTransfer(pt schema.PendingTransfer) error {
	return w.Db.Create(&pt).Error
}

func (w *Wdb) FindPendingTransfer(epochIdAtQueue, sourceDomainId uint64, recipient string, amount decimal.Decimal, readyAt int64) (schema.PendingTransfer, error) {
	pt := schema.PendingTransfer{}
	err := w.Db.Where("epoch_id_at_queue = ? AND source_domain_id = ? AND recipient = ? AND amount = ? AND ready_at = ?",
		epochIdAtQueue, sourceDomainId, recipient, amount, readyAt).First(&pt).Error
	if err == gorm.ErrRecordNotFound {
		return pt, schema.ErrNotExist
	}
	return pt, err
}

func (w *Wdb) GetAllPendingTransfers() ([]schema.PendingTransfer, error) {
	res := make([]schema.PendingTransfer, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

func (w *Wdb) GetReadyPendingTransfers(now int64) ([]schema.PendingTransfer, error) {
	res := make([]schema.PendingTransfer, 0, 10)
	err := w.Db.Where("ready_at <= ?", now).Find(&res).Error
	return res, err
}

// ReleasePendingTransfer credits the recipient and consumes the record in
// one transaction.
func (w *Wdb) ReleasePendingTransfer(pt schema.PendingTransfer, canonical bool) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", pt.ID).Delete(&schema.PendingTransfer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return schema.ErrNotExist
		}
		return creditTokenTx(tx, canonical, pt.Recipient, pt.Amount)
	})
}

// failed messages

func (w *Wdb) InsertFailedMessage(fm schema.FailedMessage) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fm).Error
}

func (w *Wdb) GetFailedMessage(sourceDomainId uint64, sourceAddress string, nonce uint64) (schema.FailedMessage, error) {
	fm := schema.FailedMessage{}
	err := w.Db.Where("source_domain_id = ? AND source_address = ? AND nonce = ?",
		sourceDomainId, sourceAddress, nonce).First(&fm).Error
	if err == gorm.ErrRecordNotFound {
		return fm, schema.ErrNotExist
	}
	return fm, err
}

func (w *Wdb) ExistFailedMessage(sourceDomainId uint64, sourceAddress string, nonce uint64) bool {
	_, err := w.GetFailedMessage(sourceDomainId, sourceAddress, nonce)
	return err == nil
}

func (w *Wdb) DelFailedMessage(sourceDomainId uint64, sourceAddress string, nonce uint64) error {
	return w.Db.Where("source_domain_id = ? AND source_address = ? AND nonce = ?",
		sourceDomainId, sourceAddress, nonce).Delete(&schema.FailedMessage{}).Error
}

func (w *Wdb) GetAllFailedMessages() ([]schema.FailedMessage, error) {
	res := make([]schema.FailedMessage, 0, 10)
	err := w.Db.Find(&res).Error
	return res, err
}

// token book

func (w *Wdb) GetTokenAccount(account string) (schema.TokenAccount, error) {
	acct := schema.TokenAccount{}
	err := w.Db.Where("account = ?", account).First(&acct).Error
	if err == gorm.ErrRecordNotFound {
		return schema.TokenAccount{Account: account}, nil
	}
	return acct, err
}

func (w *Wdb) CreditToken(canonical bool, recipient string, amount decimal.Decimal) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		return creditTokenTx(tx, canonical, recipient, amount)
	})
}

// CreditTokenWithInflow applies the credit and the epoch inflow bump in one
// transaction, so the rate-limit counter can never undercount a credit that
// landed.
func (w *Wdb) CreditTokenWithInflow(canonical bool, recipient string, amount decimal.Decimal, epochId uint64) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		if err := creditTokenTx(tx, canonical, recipient, amount); err != nil {
			return err
		}
		return addInflowTx(tx, epochId, amount)
	})
}

func (w *Wdb) DebitToken(canonical bool, from string, amount decimal.Decimal) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		return debitTokenTx(tx, canonical, from, amount)
	})
}

// DebitTokenWithOutflow is the outbound counterpart of CreditTokenWithInflow.
func (w *Wdb) DebitTokenWithOutflow(canonical bool, from string, amount decimal.Decimal, epochId uint64) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		if err := debitTokenTx(tx, canonical, from, amount); err != nil {
			return err
		}
		return addOutflowTx(tx, epochId, amount)
	})
}

func (w *Wdb) LockVault(amount decimal.Decimal) error {
	return w.Db.Transaction(func(tx *gorm.DB) error {
		return addBalanceTx(tx, schema.VaultAccount, amount)
	})
}

// creditTokenTx credits a recipient on this endpoint. On the canonical
// domain tokens leave the backing vault; on a spoke new circulating supply
// is minted. The vault guard is the structural conservation check: a spoke
// can never be credited more than was ever locked.
func creditTokenTx(tx *gorm.DB, canonical bool, recipient string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	if canonical {
		if err := subBalanceTx(tx, schema.VaultAccount, amount, schema.ErrVaultUnderflow); err != nil {
			return err
		}
	} else {
		if err := addBalanceTx(tx, schema.CirculatingAccount, amount); err != nil {
			return err
		}
	}
	return addBalanceTx(tx, recipient, amount)
}

// debitTokenTx burns-before-send: on a spoke circulating supply shrinks, on
// the canonical domain the debited amount moves back into the vault.
func debitTokenTx(tx *gorm.DB, canonical bool, from string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	if err := subBalanceTx(tx, from, amount, schema.ErrInsufficientBalance); err != nil {
		return err
	}
	if canonical {
		return addBalanceTx(tx, schema.VaultAccount, amount)
	}
	return subBalanceTx(tx, schema.CirculatingAccount, amount, schema.ErrVaultUnderflow)
}

func addBalanceTx(tx *gorm.DB, account string, amount decimal.Decimal) error {
	acct := schema.TokenAccount{Account: account}
	if err := tx.FirstOrCreate(&acct, schema.TokenAccount{Account: account}).Error; err != nil {
		return err
	}
	acct.Balance = acct.Balance.Add(amount)
	return tx.Save(&acct).Error
}

func subBalanceTx(tx *gorm.DB, account string, amount decimal.Decimal, underflowErr error) error {
	acct := schema.TokenAccount{Account: account}
	if err := tx.FirstOrCreate(&acct, schema.TokenAccount{Account: account}).Error; err != nil {
		return err
	}
	if acct.Balance.LessThan(amount) {
		return underflowErr
	}
	acct.Balance = acct.Balance.Sub(amount)
	return tx.Save(&acct).Error
}

// distributor allow-list

func (w *Wdb) GrantDistributor(addr string) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&schema.Distributor{Addr: addr}).Error
}

func (w *Wdb) RevokeDistributor(addr string) error {
	return w.Db.Where("addr = ?", addr).Delete(&schema.Distributor{}).Error
}

func (w *Wdb) IsDistributor(addr string) bool {
	d := schema.Distributor{}
	err := w.Db.Where("addr = ?", addr).First(&d).Error
	return err == nil
}

// current mint rate, single row, overwrite semantics

func (w *Wdb) SaveMintRate(mr schema.MintRate) error {
	mr.ID = 1
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&mr).Error
}

func (w *Wdb) GetMintRate() (schema.MintRate, error) {
	mr := schema.MintRate{}
	err := w.Db.First(&mr).Error
	if err == gorm.ErrRecordNotFound {
		return mr, schema.ErrNotExist
	}
	return mr, err
}
