// iota-ternary CLI - ternary ledger toolkit
//
// This CLI exposes the iota-ternary library: seeds, addresses, multisig
// digests, bundle construction and validation.
//
// Example usage:
//
//	# Generate five addresses with checksums
//	iota-ternary addresses --seed SEED --count 5 --checksum
//
//	# Build and sign a transfer of 42 iotas, spending key index 0
//	iota-ternary transfer --seed SEED --input 0 --fetch-balances "iota:ADDRESS?amount=42"
//
//	# Validate a bundle stored on a node
//	iota-ternary --node https://node.example:14265 validate --tail TAILHASH
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/suffix-labs/iota-ternary/pkg/config"
)

var (
	clientIdentifier = "iota-ternary"
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = clientIdentifier
	app.Usage = "ternary ledger toolkit: addresses, signatures and bundles"
	app.Version = config.VersionWithCommit(gitCommit, gitDate)
	app.HideVersion = true // we have a command to print the version
	app.Before = setup
	app.Commands = []*cli.Command{
		seedCommand,
		addressesCommand,
		digestCommand,
		multisigAddressCommand,
		encodeCommand,
		decodeCommand,
		hashCommand,
		transferCommand,
		validateCommand,
		nodeInfoCommand,
		versionCommand,
	}
	app.Flags = []cli.Flag{
		configFileFlag,
		verbosityFlag,
		jsonFormatFlag,
		colorFormatFlag,
		nodeFlag,
		metricsAddrFlag,
	}
	sort.Sort(cli.CommandsByName(app.Commands))
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
