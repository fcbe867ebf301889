// Package client is a thin JSON client for the node HTTP API.
//
// Every call is a POST of {"command": ...} to the node root. The client
// only exchanges precomputed trytes; proof of work and tip selection are
// left to the node.
package client

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/suffix-labs/iota-ternary/pkg/config"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// APIVersion is sent in the X-IOTA-API-Version header.
const APIVersion = "1"

// Client talks to one node.
type Client struct {
	rc *resty.Client
}

// APIError is returned when the node answers with an error payload.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Exception  string `json:"exception"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Exception
	}
	return "node returned " + strconv.Itoa(e.StatusCode) + ": " + msg
}

// New creates a client for the node in cfg.
func New(cfg config.NodeConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-IOTA-API-Version", APIVersion)
	return &Client{rc: rc}
}

// call posts req to the node and decodes the reply into result.
func (c *Client) call(ctx context.Context, command string, req map[string]interface{}, result interface{}) error {
	body := map[string]interface{}{"command": command}
	for k, v := range req {
		body[k] = v
	}

	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&APIError{}).
		Post("/")
	if err != nil {
		return errors.Wrapf(err, "failed to call %s", command)
	}
	log.Trace("node call finished", "command", command, "status", resp.StatusCode(), "duration", time.Since(start))

	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || (apiErr.Message == "" && apiErr.Exception == "") {
			apiErr = &APIError{Message: resp.Status()}
		}
		apiErr.StatusCode = resp.StatusCode()
		return errors.WithMessage(apiErr, command)
	}
	return nil
}

// NodeInfo is the reply to getNodeInfo.
type NodeInfo struct {
	AppName                            string     `json:"appName"`
	AppVersion                         string     `json:"appVersion"`
	LatestMilestone                    types.Hash `json:"latestMilestone"`
	LatestMilestoneIndex               int64      `json:"latestMilestoneIndex"`
	LatestSolidSubtangleMilestone      types.Hash `json:"latestSolidSubtangleMilestone"`
	LatestSolidSubtangleMilestoneIndex int64      `json:"latestSolidSubtangleMilestoneIndex"`
	Neighbors                          int        `json:"neighbors"`
	Tips                               int        `json:"tips"`
	Time                               int64      `json:"time"`
}

// GetNodeInfo returns the node's view of the ledger.
func (c *Client) GetNodeInfo(ctx context.Context) (*NodeInfo, error) {
	info := &NodeInfo{}
	if err := c.call(ctx, "getNodeInfo", nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetBalances returns the confirmed balance of each address, in order.
// threshold is the confirmation threshold in percent.
func (c *Client) GetBalances(ctx context.Context, addresses []types.Address, threshold int) ([]int64, error) {
	var reply struct {
		Balances []string `json:"balances"`
	}
	req := map[string]interface{}{
		"addresses": addressTrytes(addresses),
		"threshold": threshold,
	}
	if err := c.call(ctx, "getBalances", req, &reply); err != nil {
		return nil, err
	}
	if len(reply.Balances) != len(addresses) {
		return nil, errors.Errorf("getBalances returned %d balances for %d addresses", len(reply.Balances), len(addresses))
	}

	balances := make([]int64, len(reply.Balances))
	for i, s := range reply.Balances {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid balance %q for address %d", s, i)
		}
		balances[i] = n
	}
	return balances, nil
}

// GetTrytes returns the raw trytes of each transaction, in order. Unknown
// hashes come back as all '9'.
func (c *Client) GetTrytes(ctx context.Context, hashes []types.TransactionHash) ([]types.TransactionTrytes, error) {
	var reply struct {
		Trytes []types.TransactionTrytes `json:"trytes"`
	}
	req := map[string]interface{}{"hashes": hashes}
	if err := c.call(ctx, "getTrytes", req, &reply); err != nil {
		return nil, err
	}
	if len(reply.Trytes) != len(hashes) {
		return nil, errors.Errorf("getTrytes returned %d transactions for %d hashes", len(reply.Trytes), len(hashes))
	}
	return reply.Trytes, nil
}

// FindTransactionsQuery selects transactions by any combination of
// fields. Empty fields are not sent.
type FindTransactionsQuery struct {
	Bundles   []types.BundleHash
	Addresses []types.Address
	Tags      []types.Tag
	Approvees []types.TransactionHash
}

// FindTransactions returns the hashes of matching transactions.
func (c *Client) FindTransactions(ctx context.Context, q FindTransactionsQuery) ([]types.TransactionHash, error) {
	req := map[string]interface{}{}
	if len(q.Bundles) > 0 {
		req["bundles"] = q.Bundles
	}
	if len(q.Addresses) > 0 {
		req["addresses"] = addressTrytes(q.Addresses)
	}
	if len(q.Tags) > 0 {
		req["tags"] = q.Tags
	}
	if len(q.Approvees) > 0 {
		req["approvees"] = q.Approvees
	}
	if len(req) == 0 {
		return nil, errors.New("findTransactions needs at least one search field")
	}

	var reply struct {
		Hashes []types.TransactionHash `json:"hashes"`
	}
	if err := c.call(ctx, "findTransactions", req, &reply); err != nil {
		return nil, err
	}
	return reply.Hashes, nil
}

// WereAddressesSpentFrom reports, for each address, whether the node has
// seen a signature from it. Reusing a spent address leaks key material.
func (c *Client) WereAddressesSpentFrom(ctx context.Context, addresses []types.Address) ([]bool, error) {
	var reply struct {
		States []bool `json:"states"`
	}
	req := map[string]interface{}{"addresses": addressTrytes(addresses)}
	if err := c.call(ctx, "wereAddressesSpentFrom", req, &reply); err != nil {
		return nil, err
	}
	if len(reply.States) != len(addresses) {
		return nil, errors.Errorf("wereAddressesSpentFrom returned %d states for %d addresses", len(reply.States), len(addresses))
	}
	return reply.States, nil
}

// StoreTransactions stores attached transaction trytes on the node.
func (c *Client) StoreTransactions(ctx context.Context, trytes []types.TransactionTrytes) error {
	return c.call(ctx, "storeTransactions", map[string]interface{}{"trytes": trytes}, &struct{}{})
}

// BroadcastTransactions sends attached transaction trytes to the node's
// neighbors.
func (c *Client) BroadcastTransactions(ctx context.Context, trytes []types.TransactionTrytes) error {
	return c.call(ctx, "broadcastTransactions", map[string]interface{}{"trytes": trytes}, &struct{}{})
}

// addressTrytes strips checksums; nodes expect 81-tryte addresses.
func addressTrytes(addresses []types.Address) []string {
	out := make([]string, len(addresses))
	for i, a := range addresses {
		out[i] = string(a.Trytes)
	}
	return out
}
