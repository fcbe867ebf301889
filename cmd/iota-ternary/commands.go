package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/suffix-labs/iota-ternary/pkg/address"
	"github.com/suffix-labs/iota-ternary/pkg/api"
	"github.com/suffix-labs/iota-ternary/pkg/bundle"
	"github.com/suffix-labs/iota-ternary/pkg/client"
	"github.com/suffix-labs/iota-ternary/pkg/config"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/roles"
	"github.com/suffix-labs/iota-ternary/pkg/sponge"
	"github.com/suffix-labs/iota-ternary/pkg/trinary"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

var (
	seedCommand = &cli.Command{
		Action:    generateSeed,
		Name:      "seed",
		Usage:     "Generate a random seed",
		ArgsUsage: " ",
	}
	addressesCommand = &cli.Command{
		Action: generateAddresses,
		Name:   "addresses",
		Usage:  "Derive addresses from a seed",
		Flags:  []cli.Flag{seedFlag, startFlag, countFlag, securityFlag, checksumFlag},
	}
	digestCommand = &cli.Command{
		Action: generateDigests,
		Name:   "digest",
		Usage:  "Derive key digests to share with multisig co-signers",
		Flags:  []cli.Flag{seedFlag, startFlag, countFlag, securityFlag},
	}
	multisigAddressCommand = &cli.Command{
		Action:    createMultisigAddress,
		Name:      "multisig-address",
		Usage:     "Combine digests into a multisig address",
		ArgsUsage: "<digest> [<digest>...]",
		Flags:     []cli.Flag{checksumFlag},
		Description: `
Digests are combined in the order given, which is also the order in which
co-signers must sign.`,
	}
	encodeCommand = &cli.Command{
		Action:    encode,
		Name:      "encode",
		Usage:     "Encode text as trytes",
		ArgsUsage: "<text>",
	}
	decodeCommand = &cli.Command{
		Action:    decode,
		Name:      "decode",
		Usage:     "Decode trytes to text",
		ArgsUsage: "<trytes>",
		Flags:     []cli.Flag{policyFlag},
	}
	hashCommand = &cli.Command{
		Action:    hash,
		Name:      "hash",
		Usage:     "Hash trytes with Kerl or Curl",
		ArgsUsage: "<trytes>",
		Flags:     []cli.Flag{spongeFlag},
	}
	transferCommand = &cli.Command{
		Action:    transfer,
		Name:      "transfer",
		Usage:     "Build and sign a bundle paying iota: payment requests",
		ArgsUsage: "<uri> [<uri>...]",
		Flags: []cli.Flag{
			seedFlag,
			securityFlag,
			inputSliceFlag,
			fetchBalancesFlag,
			changeFlag,
			timestampFlag,
			outputFileFlag,
		},
		Description: `
The signed trytes are printed head first, one transaction per line, ready
for proof of work and attachment.`,
	}
	validateCommand = &cli.Command{
		Action: validate,
		Name:   "validate",
		Usage:  "Validate a bundle from a file or from the node",
		Flags:  []cli.Flag{bundleFileFlag, tailFlag, messagesFlag, policyFlag},
	}
	nodeInfoCommand = &cli.Command{
		Action:    nodeInfo,
		Name:      "node-info",
		Usage:     "Print the node's view of the ledger",
		ArgsUsage: " ",
	}
	versionCommand = &cli.Command{
		Action:    version,
		Name:      "version",
		Usage:     "Print version numbers",
		ArgsUsage: " ",
		Description: `
The output of this command is supposed to be machine-readable.
`,
	}
)

func generateSeed(ctx *cli.Context) error {
	seed, err := types.RandomSeed()
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, seed)
	return nil
}

func generateAddresses(ctx *cli.Context) error {
	seed, err := getSeed(ctx)
	if err != nil {
		return err
	}

	opts := api.AddressOptions{
		Start:         ctx.Int(startFlag.Name),
		Count:         ctx.Int(countFlag.Name),
		SecurityLevel: getSecurityLevel(ctx),
		Checksum:      getChecksum(ctx),
		Concurrency:   config.GetConfig().Workers.Concurrency,
	}

	var bar *progressbar.ProgressBar
	if opts.Count > 1 {
		bar = newProgressBar(ctx, opts.Count, "Generating addresses...")
		opts.OnProgress = func() {
			if err := bar.Add(1); err != nil {
				log.Debug("failed to update progress bar", "err", err)
			}
		}
	}

	addrs, err := api.GenerateAddresses(ctx.Context, seed, opts)
	if err != nil {
		return err
	}
	if bar != nil {
		if err := bar.Finish(); err != nil {
			return fmt.Errorf("failed to finish progress bar: %w", err)
		}
	}

	for _, addr := range addrs {
		fmt.Fprintf(ctx.App.Writer, "%d\t%s\n", *addr.KeyIndex, addr)
	}
	return nil
}

func generateDigests(ctx *cli.Context) error {
	seed, err := getSeed(ctx)
	if err != nil {
		return err
	}

	digests, err := api.GetDigests(ctx.Context, seed, api.AddressOptions{
		Start:         ctx.Int(startFlag.Name),
		Count:         ctx.Int(countFlag.Name),
		SecurityLevel: getSecurityLevel(ctx),
		Concurrency:   config.GetConfig().Workers.Concurrency,
	})
	if err != nil {
		return err
	}

	for _, d := range digests {
		fmt.Fprintf(ctx.App.Writer, "%d\t%s\n", *d.KeyIndex, d.Trytes)
	}
	return nil
}

func createMultisigAddress(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("at least one digest is required")
	}

	digests := make([]types.Digest, 0, ctx.NArg())
	for i, s := range ctx.Args().Slice() {
		d, err := types.NewDigest(s, nil)
		if err != nil {
			return fmt.Errorf("invalid digest %d: %w", i, err)
		}
		digests = append(digests, d)
	}

	ms, err := api.CreateMultisigAddress(digests)
	if err != nil {
		return err
	}
	addr := ms.Address
	if getChecksum(ctx) {
		addr = addr.WithValidChecksum()
	}
	fmt.Fprintln(ctx.App.Writer, addr)
	return nil
}

func encode(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("text argument required")
	}
	fmt.Fprintln(ctx.App.Writer, trinary.EncodeString(strings.Join(ctx.Args().Slice(), " ")))
	return nil
}

func decode(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("exactly one trytes argument required")
	}
	policy, err := trinary.ParseErrorPolicy(ctx.String(policyFlag.Name))
	if err != nil {
		return err
	}

	in := ctx.Args().First()
	if err := trinary.ValidTrytes(in); err != nil {
		return err
	}
	text, err := trinary.DecodeString(trinary.Trytes(in), policy)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, text)
	return nil
}

func hash(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("exactly one trytes argument required")
	}
	kind, err := sponge.ParseKind(ctx.String(spongeFlag.Name))
	if err != nil {
		return err
	}
	factory, err := sponge.FactoryFor(kind)
	if err != nil {
		return err
	}

	trits, err := trinary.TrytesToTrits(trinary.Trytes(ctx.Args().First()))
	if err != nil {
		return err
	}
	out, err := sponge.Sum(factory, trits)
	if err != nil {
		return fmt.Errorf("failed to hash with %v: %w", kind, err)
	}
	fmt.Fprintln(ctx.App.Writer, types.HashFromTrits(out))
	return nil
}

func transfer(ctx *cli.Context) error {
	seed, err := getSeed(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return errors.New("at least one payment request URI is required")
	}

	var transfers []*bundle.ProposedTransaction
	for _, uri := range ctx.Args().Slice() {
		req, err := api.ParsePaymentRequest(uri)
		if err != nil {
			return fmt.Errorf("invalid payment request %q: %w", uri, err)
		}
		transfers = append(transfers, req.Transactions()...)
	}

	inputs, err := parseInputs(seed, getSecurityLevel(ctx), ctx.StringSlice(inputSliceFlag.Name))
	if err != nil {
		return err
	}
	if ctx.Bool(fetchBalancesFlag.Name) {
		node := client.New(config.GetConfig().Node)
		if inputs, err = api.FetchBalances(ctx.Context, node, inputs); err != nil {
			return err
		}
	}

	proposal := &api.TransferProposal{
		Transfers: transfers,
		Inputs:    inputs,
		Timestamp: ctx.Int64(timestampFlag.Name),
	}
	if s := ctx.String(changeFlag.Name); s != "" {
		change, err := types.NewAddress(s)
		if err != nil {
			return fmt.Errorf("invalid change address: %w", err)
		}
		if change.Checksum != "" && !change.IsChecksumValid() {
			return fmt.Errorf("change address %s has an invalid checksum", s)
		}
		proposal.ChangeAddress = &change
	}

	trytes, err := api.PrepareTransfer(seed, proposal)
	if err != nil {
		return err
	}
	log.Info("bundle prepared", "transactions", len(trytes))
	return writeTrytes(ctx, trytes)
}

func validate(ctx *cli.Context) error {
	cfg := config.GetConfig()
	legacy, err := cfg.Validation.LegacyFactory()
	if err != nil {
		return err
	}
	opts := []roles.ValidatorOption{roles.WithLegacySponge(legacy)}

	policy, err := bundle.ParseMessagePolicy(ctx.String(policyFlag.Name))
	if err != nil {
		return err
	}

	var b *bundle.Bundle
	switch {
	case ctx.IsSet(tailFlag.Name):
		tail, err := types.NewHash(ctx.String(tailFlag.Name))
		if err != nil {
			return err
		}
		b, err = client.New(cfg.Node).GetBundle(ctx.Context, tail, opts...)
		var invalid *client.InvalidBundleError
		if errors.As(err, &invalid) {
			return reportFindings(ctx, invalid.Hash, invalid.Findings)
		}
		if err != nil {
			return err
		}

	case ctx.IsSet(bundleFileFlag.Name):
		trytes, err := readTrytesFile(ctx.String(bundleFileFlag.Name))
		if err != nil {
			return err
		}
		if b, err = bundle.ParseBundle(trytes); err != nil {
			return err
		}
		v, err := roles.NewValidator(b, opts...)
		if err != nil {
			return err
		}
		if !v.IsValid() {
			return reportFindings(ctx, b.Hash(), v.Errors())
		}
		if v.AcceptedLegacy() {
			fmt.Fprintln(ctx.App.Writer, "signatures use the legacy sponge")
		}

	default:
		return fmt.Errorf("one of --%s or --%s is required", bundleFileFlag.Name, tailFlag.Name)
	}

	fmt.Fprintf(ctx.App.Writer, "bundle %s is valid (%d transactions)\n", b.Hash(), b.Len())
	if !ctx.Bool(messagesFlag.Name) {
		return nil
	}
	messages, err := b.Messages(policy)
	if err != nil {
		return err
	}
	for _, m := range messages {
		fmt.Fprintln(ctx.App.Writer, m)
	}
	return nil
}

func nodeInfo(ctx *cli.Context) error {
	info, err := client.New(config.GetConfig().Node).GetNodeInfo(ctx.Context)
	if err != nil {
		return err
	}
	bs, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, string(bs))
	return nil
}

func version(ctx *cli.Context) error {
	w := ctx.App.Writer
	fmt.Fprintln(w, clientIdentifier)
	fmt.Fprintln(w, "Version:", config.VersionWithMeta)
	if gitCommit != "" {
		fmt.Fprintln(w, "Git Commit:", gitCommit)
	}
	if gitDate != "" {
		fmt.Fprintln(w, "Git Commit Date:", gitDate)
	}
	fmt.Fprintln(w, "Architecture:", runtime.GOARCH)
	fmt.Fprintln(w, "Go Version:", runtime.Version())
	fmt.Fprintln(w, "Operating System:", runtime.GOOS)
	return nil
}

func newProgressBar(ctx *cli.Context, n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(ctx.App.ErrWriter),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// parseInputs derives the input address of every keyIndex[:balance] argument.
func parseInputs(seed types.Seed, securityLevel int, args []string) ([]types.Address, error) {
	if len(args) == 0 {
		return nil, nil
	}
	gen, err := address.NewGenerator(seed, securityLevel, false)
	if err != nil {
		return nil, err
	}

	inputs := make([]types.Address, 0, len(args))
	for _, arg := range args {
		indexStr, balanceStr, hasBalance := strings.Cut(arg, ":")
		index, err := strconv.Atoi(indexStr)
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid input %q: key index must be a non-negative integer", arg)
		}

		addrs, err := gen.GetAddresses(index, 1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to derive input %d: %w", index, err)
		}
		addr := addrs[0]

		if hasBalance {
			balance, err := strconv.ParseInt(balanceStr, 10, 64)
			if err != nil || balance <= 0 {
				return nil, fmt.Errorf("invalid input %q: balance must be a positive integer", arg)
			}
			addr = addr.WithBalance(balance)
		}
		inputs = append(inputs, addr)
	}
	return inputs, nil
}

func readTrytesFile(path string) ([]types.TransactionTrytes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readTrytes(f)
}

// readTrytes reads one transaction per line, skipping blank lines.
func readTrytes(r io.Reader) ([]types.TransactionTrytes, error) {
	var out []types.TransactionTrytes
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		s := strings.TrimSpace(scanner.Text())
		if s == "" {
			continue
		}
		t, err := types.NewTransactionTrytes(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeTrytes(ctx *cli.Context, trytes []types.TransactionTrytes) error {
	var sb strings.Builder
	for _, t := range trytes {
		sb.WriteString(string(t))
		sb.WriteByte('\n')
	}

	if path := ctx.String(outputFileFlag.Name); path != "" {
		if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
			return fmt.Errorf("failed to write %v: %w", path, err)
		}
		log.Info("transaction trytes written", "file", path)
		return nil
	}
	_, err := io.WriteString(ctx.App.Writer, sb.String())
	return err
}

func reportFindings(ctx *cli.Context, h types.BundleHash, findings []string) error {
	fmt.Fprintf(ctx.App.Writer, "bundle %s is invalid:\n", h)
	for _, f := range findings {
		fmt.Fprintln(ctx.App.Writer, "  "+f)
	}
	return fmt.Errorf("bundle has %d findings", len(findings))
}
