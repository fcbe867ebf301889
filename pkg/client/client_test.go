package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/config"
	"github.com/suffix-labs/iota-ternary/pkg/roles"
	"github.com/suffix-labs/iota-ternary/pkg/signing"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

const (
	testSeed    = types.Seed("TESTVALUE9DONTUSEINPRODUCTION999999GFDDCPFIIEHBCWFN9KHRBEIHHREFCKBVGUGEDXCFHDFPAL")
	testAddress = "KNDWDEEWWFVZLISLYRABGVWZCHZNZLNSEJXFKVGAUFLL9UMZYEZMEJB9BDLAASWTHEKFREUDIUPY9ICKW"
)

// fakeNode answers the node commands the client uses.
type fakeNode struct {
	t *testing.T

	mu       sync.Mutex
	requests []map[string]interface{}
	trytes   map[string]types.TransactionTrytes
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(n.t, http.MethodPost, r.Method)
	assert.Equal(n.t, APIVersion, r.Header.Get("X-IOTA-API-Version"))

	var req map[string]interface{}
	assert.NoError(n.t, json.NewDecoder(r.Body).Decode(&req))
	n.mu.Lock()
	n.requests = append(n.requests, req)
	n.mu.Unlock()

	reply := func(status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(n.t, json.NewEncoder(w).Encode(v))
	}

	switch req["command"] {
	case "getNodeInfo":
		reply(http.StatusOK, map[string]interface{}{
			"appName":              "fake",
			"appVersion":           "1.0.0",
			"latestMilestoneIndex": 42,
			"neighbors":            3,
			"tips":                 7,
		})
	case "getBalances":
		addrs := req["addresses"].([]interface{})
		if len(addrs) == 0 {
			reply(http.StatusBadRequest, map[string]string{"error": "Invalid addresses input"})
			return
		}
		balances := make([]string, len(addrs))
		for i := range addrs {
			balances[i] = strings.Repeat("1", i+1)
		}
		reply(http.StatusOK, map[string]interface{}{"balances": balances})
	case "getTrytes":
		hashes := req["hashes"].([]interface{})
		out := make([]types.TransactionTrytes, len(hashes))
		for i, h := range hashes {
			t, ok := n.trytes[h.(string)]
			if !ok {
				t = types.TransactionTrytes(strings.Repeat("9", types.TransactionTrytesLength))
			}
			out[i] = t
		}
		reply(http.StatusOK, map[string]interface{}{"trytes": out})
	case "findTransactions":
		reply(http.StatusOK, map[string]interface{}{"hashes": []string{strings.Repeat("A", types.HashLength)}})
	case "wereAddressesSpentFrom":
		addrs := req["addresses"].([]interface{})
		states := make([]bool, len(addrs))
		states[0] = true
		reply(http.StatusOK, map[string]interface{}{"states": states})
	case "storeTransactions", "broadcastTransactions":
		reply(http.StatusOK, map[string]interface{}{})
	default:
		reply(http.StatusInternalServerError, map[string]string{"exception": "unknown command"})
	}
}

func (n *fakeNode) lastRequest() map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests[len(n.requests)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeNode) {
	t.Helper()
	node := &fakeNode{t: t, trytes: map[string]types.TransactionTrytes{}}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	return New(config.NodeConfig{URL: srv.URL, TimeoutSeconds: 5}), node
}

func TestGetNodeInfo(t *testing.T) {
	c, _ := newTestClient(t)

	info, err := c.GetNodeInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake", info.AppName)
	assert.Equal(t, int64(42), info.LatestMilestoneIndex)
	assert.Equal(t, 3, info.Neighbors)
	assert.Equal(t, 7, info.Tips)
}

func TestGetBalances(t *testing.T) {
	c, node := newTestClient(t)
	addr, err := types.NewAddress(testAddress)
	require.NoError(t, err)

	balances, err := c.GetBalances(context.Background(), []types.Address{addr.WithValidChecksum(), addr}, 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 11}, balances)

	req := node.lastRequest()
	assert.Equal(t, []interface{}{testAddress, testAddress}, req["addresses"])
	assert.Equal(t, float64(100), req["threshold"])
}

func TestAPIError(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetBalances(context.Background(), nil, 100)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid addresses input", apiErr.Message)
	assert.Contains(t, err.Error(), "getBalances")
}

func TestFindTransactions(t *testing.T) {
	c, node := newTestClient(t)

	_, err := c.FindTransactions(context.Background(), FindTransactionsQuery{})
	assert.Error(t, err)
	assert.Empty(t, node.requests)

	tag, err := types.NewTag("FIND")
	require.NoError(t, err)
	hashes, err := c.FindTransactions(context.Background(), FindTransactionsQuery{Tags: []types.Tag{tag}})
	require.NoError(t, err)
	assert.Equal(t, []types.TransactionHash{types.TransactionHash(strings.Repeat("A", types.HashLength))}, hashes)

	req := node.lastRequest()
	assert.Equal(t, []interface{}{string(tag)}, req["tags"])
	assert.NotContains(t, req, "bundles")
}

func TestWereAddressesSpentFrom(t *testing.T) {
	c, _ := newTestClient(t)
	addr, err := types.NewAddress(testAddress)
	require.NoError(t, err)

	states, err := c.WereAddressesSpentFrom(context.Background(), []types.Address{addr, addr})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, states)
}

func TestStoreAndBroadcast(t *testing.T) {
	c, node := newTestClient(t)
	trytes := []types.TransactionTrytes{types.TransactionTrytes(strings.Repeat("9", types.TransactionTrytesLength))}

	require.NoError(t, c.StoreTransactions(context.Background(), trytes))
	assert.Equal(t, "storeTransactions", node.lastRequest()["command"])

	require.NoError(t, c.BroadcastTransactions(context.Background(), trytes))
	assert.Equal(t, "broadcastTransactions", node.lastRequest()["command"])
	assert.Len(t, node.lastRequest()["trytes"], 1)
}

// attachBundle signs a two-transaction bundle, links it through trunk
// hashes the way proof of work would, and stores it on the node. It
// returns the hash of every transaction, tail first.
func attachBundle(t *testing.T, node *fakeNode, mangle func(*bundle.Bundle)) []types.TransactionHash {
	t.Helper()

	input, err := types.NewAddress(testAddress)
	require.NoError(t, err)
	recipient, err := types.NewAddress("RECIPIENT")
	require.NoError(t, err)

	b := roles.NewCreator().WithTimestamp(1509136296).Create()
	c := roles.NewConstructor(b)
	require.NoError(t, c.AddTransaction(bundle.NewProposedTransaction(recipient, 42, "", "")))
	require.NoError(t, c.AddInputs([]types.Address{input.WithBalance(42).WithKeyIndex(0).WithSecurityLevel(1)}))
	require.NoError(t, roles.NewFinalizer(b).Finalize())
	require.NoError(t, roles.NewSigner(b).SignInputs(signing.NewKeyGenerator(testSeed)))

	out, err := roles.NewExtractor(b).Extract()
	require.NoError(t, err)
	if mangle != nil {
		mangle(out)
	}

	hashes := make([]types.TransactionHash, out.Len())
	trunk := types.NullHash
	for i := out.Len() - 1; i >= 0; i-- {
		tx := out.Transactions[i]
		tx.TrunkTransactionHash = trunk
		tx.BranchTransactionHash = types.NullHash
		tx.Hash = tx.ComputeHash()
		node.trytes[string(tx.Hash)] = tx.Trytes()
		hashes[i] = tx.Hash
		trunk = tx.Hash
	}
	return hashes
}

func TestGetBundle(t *testing.T) {
	c, node := newTestClient(t)
	hashes := attachBundle(t, node, nil)

	b, err := c.GetBundle(context.Background(), hashes[0])
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, int64(42), b.Transactions[0].Value)
	assert.Equal(t, int64(-42), b.Transactions[1].Value)
	assert.Equal(t, hashes[1], b.Transactions[1].Hash)
}

func TestGetBundleErrors(t *testing.T) {
	c, node := newTestClient(t)
	hashes := attachBundle(t, node, nil)

	_, err := c.GetBundle(context.Background(), hashes[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a tail transaction")

	_, err = c.GetBundle(context.Background(), types.NullHash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not visible")

	mangled := attachBundle(t, node, func(b *bundle.Bundle) { b.Transactions[0].Value = 43 })
	_, err = c.GetBundle(context.Background(), mangled[0])
	var invalid *InvalidBundleError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"Bundle has invalid balance (expected 0, actual 1)."}, invalid.Findings)
}
