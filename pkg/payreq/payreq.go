// Package payreq implements "iota:" payment request URIs.
//
// A payment request URI carries everything needed to propose one or more
// bundle outputs, so it can be shared via QR codes, links, or text.
//
// URI Format:
//
//	iota:<address>?amount=<iotas>&tag=<tag>&message=<text>
//
// Multiple recipients are supported with indexed parameters:
//
//	iota:?address.1=<addr1>&amount.1=<amt1>&address.2=<addr2>&amount.2=<amt2>
//
// Addresses may be 81 trytes, or 90 trytes including a checksum, which is
// then verified.
package payreq

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

// Scheme is the URI scheme of payment requests.
const Scheme = "iota:"

// maxIndex is the largest payment index accepted in indexed parameters.
const maxIndex = 9999

// PaymentRequest represents a parsed payment request.
//
// A payment request can have multiple recipients (payments), each with
// their own address, amount, tag and message.
type PaymentRequest struct {
	Payments []Payment // List of payment recipients
}

// Payment represents a single payment within a request.
//
// Each payment specifies:
//   - Address: Recipient address, with checksum if one was given
//   - Amount: Value in iotas (nil = user specifies)
//   - Tag: Optional tag for the output transaction
//   - Label: Optional label for the recipient
//   - Message: Optional text stored in the output's message fragment
type Payment struct {
	Address types.Address
	Amount  *int64
	Tag     *types.Tag
	Label   *string
	Message *string
}

// Parse parses a payment request URI.
//
// URI formats supported:
//  1. Single recipient: iota:<address>?amount=42&message=hello
//  2. Multiple recipients: iota:?address.1=addr1&amount.1=1&address.2=addr2&amount.2=2
func Parse(uri string) (*PaymentRequest, error) {
	uri = strings.TrimPrefix(uri, Scheme)

	// Split into address and query components
	var baseAddress, query string
	parts := strings.SplitN(uri, "?", 2)
	if len(parts) == 2 {
		baseAddress, query = parts[0], parts[1]
	} else if strings.Contains(parts[0], "=") {
		query = parts[0]
	} else {
		baseAddress = parts[0]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}

	var payments []Payment
	if hasIndexedParams(params) {
		if baseAddress != "" {
			return nil, fmt.Errorf("indexed parameters cannot be combined with a base address")
		}
		payments, err = parseIndexedPayments(params)
		if err != nil {
			return nil, err
		}
	} else {
		payment, err := parsePayment(baseAddress, func(name string) string { return params.Get(name) })
		if err != nil {
			return nil, err
		}
		payments = []Payment{payment}
	}

	return &PaymentRequest{Payments: payments}, nil
}

// parsePayment reads one payment through get, which maps a parameter name
// to its value for that payment.
func parsePayment(address string, get func(string) string) (Payment, error) {
	var payment Payment

	if addrParam := get("address"); addrParam != "" {
		address = addrParam
	}
	if address == "" {
		return payment, fmt.Errorf("missing address")
	}
	addr, err := parseAddress(address)
	if err != nil {
		return payment, err
	}
	payment.Address = addr

	if amountStr := get("amount"); amountStr != "" {
		amount, err := parseAmount(amountStr)
		if err != nil {
			return payment, fmt.Errorf("invalid amount: %w", err)
		}
		payment.Amount = &amount
	}

	if tagStr := get("tag"); tagStr != "" {
		tag, err := types.NewTag(tagStr)
		if err != nil {
			return payment, fmt.Errorf("invalid tag: %w", err)
		}
		payment.Tag = &tag
	}

	if label := get("label"); label != "" {
		payment.Label = &label
	}
	if message := get("message"); message != "" {
		payment.Message = &message
	}

	return payment, nil
}

// parseIndexedPayments parses multiple recipients using indexed parameters.
//
// Index 0 can be written without suffix.
func parseIndexedPayments(params url.Values) ([]Payment, error) {
	indices := make(map[int]bool)
	for key := range params {
		if idx := extractIndex(key); idx >= 0 {
			indices[idx] = true
		} else if strings.Contains(key, ".") {
			return nil, fmt.Errorf("invalid indexed parameter %q", key)
		}
	}
	if params.Get("address") != "" {
		indices[0] = true
	}

	ordered := make([]int, 0, len(indices))
	for idx := range indices {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)

	payments := make([]Payment, 0, len(ordered))
	for _, idx := range ordered {
		idx := idx
		payment, err := parsePayment("", func(name string) string {
			return getIndexedParam(params, name, idx)
		})
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", idx, err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func parseAddress(s string) (types.Address, error) {
	addr, err := types.NewAddress(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid address: %w", err)
	}
	if addr.Checksum != "" && !addr.IsChecksumValid() {
		return types.Address{}, fmt.Errorf("invalid address: checksum %s does not match", addr.Checksum)
	}
	return addr, nil
}

// hasIndexedParams checks if the query contains indexed parameters.
func hasIndexedParams(params url.Values) bool {
	for key := range params {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}

// extractIndex extracts the index from a parameter name.
//
// Examples:
//   - "address.1" -> 1
//   - "amount.42" -> 42
//   - "address" -> -1 (no index)
//
// Returns -1 if no index found.
func extractIndex(paramName string) int {
	parts := strings.Split(paramName, ".")
	if len(parts) != 2 {
		return -1
	}

	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 || idx > maxIndex {
		return -1
	}
	return idx
}

// getIndexedParam gets a parameter value for a specific index.
//
// For index 0, tries both "name" and "name.0".
func getIndexedParam(params url.Values, name string, index int) string {
	if index == 0 {
		if val := params.Get(name); val != "" {
			return val
		}
	}
	return params.Get(fmt.Sprintf("%s.%d", name, index))
}

// parseAmount parses an amount in iotas. Iotas are indivisible, so only
// non-negative integers are valid.
func parseAmount(amountStr string) (int64, error) {
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid integer: %w", err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount cannot be negative")
	}
	return amount, nil
}

// Transactions turns every payment into a proposed output. A payment
// without an amount becomes a zero-value transaction.
func (req *PaymentRequest) Transactions() []*bundle.ProposedTransaction {
	txs := make([]*bundle.ProposedTransaction, 0, len(req.Payments))
	for _, p := range req.Payments {
		txs = append(txs, p.Transaction())
	}
	return txs
}

// Transaction returns the proposed output for p.
func (p Payment) Transaction() *bundle.ProposedTransaction {
	var value int64
	if p.Amount != nil {
		value = *p.Amount
	}
	var tag types.Tag
	if p.Tag != nil {
		tag = *p.Tag
	}
	var message trinary.Trytes
	if p.Message != nil {
		message = trinary.EncodeString(*p.Message)
	}
	return bundle.NewProposedTransaction(p.Address.RemoveChecksum(), value, tag, message)
}

// Encode creates a payment request URI from a PaymentRequest.
//
// This is the inverse of Parse().
func (req *PaymentRequest) Encode() string {
	switch len(req.Payments) {
	case 0:
		return Scheme
	case 1:
		p := req.Payments[0]
		uri := Scheme + p.Address.String()
		if params := p.values(""); len(params) > 0 {
			uri += "?" + params.Encode()
		}
		return uri
	}

	params := url.Values{}
	for i, p := range req.Payments {
		suffix := fmt.Sprintf(".%d", i)
		params.Add("address"+suffix, p.Address.String())
		for k, v := range p.values(suffix) {
			params[k] = v
		}
	}
	return Scheme + "?" + params.Encode()
}

func (p Payment) values(suffix string) url.Values {
	params := url.Values{}
	if p.Amount != nil {
		params.Add("amount"+suffix, strconv.FormatInt(*p.Amount, 10))
	}
	if p.Tag != nil {
		params.Add("tag"+suffix, strings.TrimRight(string(*p.Tag), "9"))
	}
	if p.Label != nil {
		params.Add("label"+suffix, *p.Label)
	}
	if p.Message != nil {
		params.Add("message"+suffix, *p.Message)
	}
	return params
}
