package crossfee

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/permadao/crossfee/common"
	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
)

func (s *CrossFee) runAPI(port string) {
	r := s.engine
	r.Use(common.CORSMiddleware())
	r.Use(common.LimiterMiddleware(600, "M", s.config.GetIPWhiteList))

	v1 := r.Group("/")
	{
		v1.GET("/info", s.getInfo)
		v1.GET("/ledger/:spokeDomainId", s.getLedger)
		v1.GET("/ledgers", s.getLedgers)
		v1.GET("/rate", s.getRate)
		v1.GET("/domains", s.getDomains)
		v1.GET("/failed-messages", s.getFailedMessages)
		v1.GET("/pending-transfers", s.getPendingTransfers)

		// relayer surface
		v1.POST("/message", s.postMessage)
		v1.POST("/pending-transfers/release", s.postRelease)
		v1.POST("/distribute/:spokeDomainId", s.postDistribute)
	}

	admin := r.Group("/admin", s.adminMiddleware())
	{
		admin.POST("/peer", s.postRegisterPeer)
		admin.POST("/settle/:spokeDomainId/:amount", s.postSettle)
		admin.POST("/replay", s.postReplay)
		admin.POST("/pause", s.postPause)
		admin.POST("/unpause", s.postUnpause)
		admin.POST("/inflow-limit/:limit", s.postInflowLimit)
		admin.POST("/queue-delay/:seconds", s.postQueueDelay)
		admin.POST("/distributor/:addr", s.postGrantDistributor)
		admin.DELETE("/distributor/:addr", s.postRevokeDistributor)
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func (s *CrossFee) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminKey == "" || c.GetHeader("X-API-KEY") != s.adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, schema.RespErr{Err: "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *CrossFee) getInfo(c *gin.Context) {
	vault, _ := s.wdb.GetTokenAccount(schema.VaultAccount)
	circulating, _ := s.wdb.GetTokenAccount(schema.CirculatingAccount)
	c.JSON(http.StatusOK, gin.H{
		"domainId":    s.domainId,
		"canonical":   s.canonical,
		"paused":      s.config.Paused(),
		"epochId":     s.currentEpochId(),
		"inflowLimit": s.config.InflowLimit().String(),
		"queueDelay":  int64(s.config.QueueDelay().Seconds()),
		"vault":       vault.Balance.String(),
		"circulating": circulating.Balance.String(),
	})
}

func (s *CrossFee) getLedger(c *gin.Context) {
	spokeDomainId, err := strconv.ParseUint(c.Param("spokeDomainId"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	rec, err := s.wdb.GetFeeDebt(spokeDomainId)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *CrossFee) getLedgers(c *gin.Context) {
	recs, err := s.wdb.GetAllFeeDebts()
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *CrossFee) getRate(c *gin.Context) {
	mr, err := s.CurrentMintRate()
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, mr)
}

func (s *CrossFee) getDomains(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Domains())
}

func (s *CrossFee) getFailedMessages(c *gin.Context) {
	fms, err := s.wdb.GetAllFailedMessages()
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, fms)
}

func (s *CrossFee) getPendingTransfers(c *gin.Context) {
	pts, err := s.wdb.GetAllPendingTransfers()
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, pts)
}

func (s *CrossFee) postMessage(c *gin.Context) {
	env := schema.Envelope{}
	if err := c.ShouldBindJSON(&env); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.DispatchMessage(env); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

type releaseReq struct {
	EpochIdAtQueue uint64 `json:"epochIdAtQueue"`
	SourceDomainId uint64 `json:"sourceDomainId"`
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
	ReadyAt        int64  `json:"readyAt"`
}

func (s *CrossFee) postRelease(c *gin.Context) {
	req := releaseReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.ProcessQueued(req.EpochIdAtQueue, req.SourceDomainId, req.Recipient, amount, req.ReadyAt); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

func (s *CrossFee) postDistribute(c *gin.Context) {
	spokeDomainId, err := strconv.ParseUint(c.Param("spokeDomainId"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	caller := c.GetHeader("X-CALLER")
	mintAmount, err := s.Distribute(spokeDomainId, caller)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"mintAmount": mintAmount.String()})
}

type registerPeerReq struct {
	DomainId    uint64 `json:"domainId"`
	Credential  string `json:"credential"`
	IsCanonical bool   `json:"isCanonical"`
}

func (s *CrossFee) postRegisterPeer(c *gin.Context) {
	req := registerPeerReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.registry.RegisterPeer(req.DomainId, req.Credential, req.IsCanonical); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (s *CrossFee) postSettle(c *gin.Context) {
	spokeDomainId, err := strconv.ParseUint(c.Param("spokeDomainId"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	amount, err := decimal.NewFromString(c.Param("amount"))
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.SettleFee(spokeDomainId, amount); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "settled"})
}

type replayReq struct {
	SourceDomainId uint64 `json:"sourceDomainId"`
	SourceAddress  string `json:"sourceAddress"`
	Nonce          uint64 `json:"nonce"`
	Payload        []byte `json:"payload,omitempty"`
}

func (s *CrossFee) postReplay(c *gin.Context) {
	req := replayReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.ReplayMessage(req.SourceDomainId, req.SourceAddress, req.Nonce, req.Payload); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "replayed"})
}

func (s *CrossFee) postPause(c *gin.Context) {
	if err := s.Pause(); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (s *CrossFee) postUnpause(c *gin.Context) {
	if err := s.Unpause(); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unpaused"})
}

func (s *CrossFee) postInflowLimit(c *gin.Context) {
	limit, err := decimal.NewFromString(c.Param("limit"))
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.SetInflowLimit(limit); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *CrossFee) postQueueDelay(c *gin.Context) {
	seconds, err := strconv.ParseInt(c.Param("seconds"), 10, 64)
	if err != nil || seconds < 0 {
		errorResponse(c, "invalid queue delay")
		return
	}
	if err := s.SetQueueDelaySeconds(seconds); err != nil {
		errorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *CrossFee) postGrantDistributor(c *gin.Context) {
	if err := s.wdb.GrantDistributor(c.Param("addr")); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func (s *CrossFee) postRevokeDistributor(c *gin.Context) {
	if err := s.wdb.RevokeDistributor(c.Param("addr")); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}
