package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
)

// Client talks to one crossfee endpoint's ops API. Admin calls need the
// endpoint's api key.
type Client struct {
	SCli *gentleman.Client

	apiKey string
	caller string // identity sent on distribute calls
}

func New(url string) *Client {
	return &Client{
		SCli: gentleman.New().URL(url),
	}
}

func NewWithAuth(url, apiKey, caller string) *Client {
	cli := New(url)
	cli.apiKey = apiKey
	cli.caller = caller
	return cli
}

func (c *Client) GetInfo() (gjson.Result, error) {
	res, err := c.get("/info")
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.Parse(res), nil
}

func (c *Client) GetLedger(spokeDomainId uint64) (rec schema.FeeDebtRecord, err error) {
	res, err := c.get("/ledger/" + strconv.FormatUint(spokeDomainId, 10))
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(res), &rec)
	return
}

func (c *Client) GetRate() (mr schema.MintRate, err error) {
	res, err := c.get("/rate")
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(res), &mr)
	return
}

func (c *Client) GetFailedMessages() (fms []schema.FailedMessage, err error) {
	res, err := c.get("/failed-messages")
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(res), &fms)
	return
}

func (c *Client) GetPendingTransfers() (pts []schema.PendingTransfer, err error) {
	res, err := c.get("/pending-transfers")
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(res), &pts)
	return
}

// SubmitMessage delivers an envelope over http, for relayers not wired to
// the message queue.
func (c *Client) SubmitMessage(env schema.Envelope) error {
	_, err := c.post("/message", env)
	return err
}

func (c *Client) ReleaseTransfer(pt schema.PendingTransfer) error {
	req := map[string]interface{}{
		"epochIdAtQueue": pt.EpochIdAtQueue,
		"sourceDomainId": pt.SourceDomainId,
		"recipient":      pt.Recipient,
		"amount":         pt.Amount.String(),
		"readyAt":        pt.ReadyAt,
	}
	_, err := c.post("/pending-transfers/release", req)
	return err
}

func (c *Client) Distribute(spokeDomainId uint64) (mintAmount decimal.Decimal, err error) {
	res, err := c.post("/distribute/"+strconv.FormatUint(spokeDomainId, 10), nil)
	if err != nil {
		return
	}
	return decimal.NewFromString(gjson.Get(res, "mintAmount").String())
}

// admin surface

func (c *Client) RegisterPeer(domainId uint64, credential string, isCanonical bool) error {
	req := map[string]interface{}{
		"domainId":    domainId,
		"credential":  credential,
		"isCanonical": isCanonical,
	}
	_, err := c.post("/admin/peer", req)
	return err
}

func (c *Client) Settle(spokeDomainId uint64, amount decimal.Decimal) error {
	_, err := c.post(fmt.Sprintf("/admin/settle/%d/%s", spokeDomainId, amount.String()), nil)
	return err
}

func (c *Client) Replay(sourceDomainId uint64, sourceAddress string, nonce uint64) error {
	req := map[string]interface{}{
		"sourceDomainId": sourceDomainId,
		"sourceAddress":  sourceAddress,
		"nonce":          nonce,
	}
	_, err := c.post("/admin/replay", req)
	return err
}

func (c *Client) Pause() error {
	_, err := c.post("/admin/pause", nil)
	return err
}

func (c *Client) Unpause() error {
	_, err := c.post("/admin/unpause", nil)
	return err
}

func (c *Client) SetInflowLimit(limit decimal.Decimal) error {
	_, err := c.post("/admin/inflow-limit/"+limit.String(), nil)
	return err
}

func (c *Client) SetQueueDelay(seconds int64) error {
	_, err := c.post("/admin/queue-delay/"+strconv.FormatInt(seconds, 10), nil)
	return err
}

func (c *Client) GrantDistributor(addr string) error {
	_, err := c.post("/admin/distributor/"+addr, nil)
	return err
}

func (c *Client) RevokeDistributor(addr string) error {
	req := c.SCli.Request().Method("DELETE").Path("/admin/distributor/" + addr)
	c.auth(req)
	return send(req)
}

func (c *Client) get(path string) (string, error) {
	req := c.SCli.Request().Path(path)
	c.auth(req)
	res, err := req.Send()
	if err != nil {
		return "", err
	}
	if !res.Ok {
		return "", parseErr(res.String())
	}
	return res.String(), nil
}

func (c *Client) post(path string, payload interface{}) (string, error) {
	req := c.SCli.Request().Method("POST").Path(path)
	if payload != nil {
		req.Use(body.JSON(payload))
	}
	c.auth(req)
	res, err := req.Send()
	if err != nil {
		return "", err
	}
	if !res.Ok {
		return "", parseErr(res.String())
	}
	return res.String(), nil
}

func (c *Client) auth(req *gentleman.Request) {
	if c.apiKey != "" {
		req.SetHeader("X-API-KEY", c.apiKey)
	}
	if c.caller != "" {
		req.SetHeader("X-CALLER", c.caller)
	}
}

func send(req *gentleman.Request) error {
	res, err := req.Send()
	if err != nil {
		return err
	}
	if !res.Ok {
		return parseErr(res.String())
	}
	return nil
}

func parseErr(respBody string) error {
	if msg := gjson.Get(respBody, "error").String(); msg != "" {
		return errors.New(msg)
	}
	return errors.New(respBody)
}
