package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/suffix-labs/iota-ternary/pkg/config"
	"github.com/suffix-labs/iota-ternary/pkg/log"
	"github.com/suffix-labs/iota-ternary/pkg/metrics"
	"github.com/suffix-labs/iota-ternary/pkg/types"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Specify config file",
	}
	verbosityFlag = &cli.Uint64Flag{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Usage:   "log verbosity (0:panic, 1:fatal, 2:error, 3:warn, 4:info, 5:debug, 6:trace)",
		Value:   config.DefaultVerbosity,
	}
	jsonFormatFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output log in json format",
	}
	colorFormatFlag = &cli.BoolFlag{
		Name:  "color",
		Usage: "output log in color text format",
		Value: true,
	}
	nodeFlag = &cli.StringFlag{
		Name:  "node",
		Usage: "node API URL, overrides Node.URL",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "serve prometheus metrics on this address, ie. 127.0.0.1:9100",
	}

	seedFlag = &cli.StringFlag{
		Name:    "seed",
		Usage:   "wallet seed (81 trytes)",
		EnvVars: []string{"IOTA_SEED"},
	}
	securityFlag = &cli.IntFlag{
		Name:  "security",
		Usage: "security level 1, 2 or 3, overrides Wallet.SecurityLevel",
	}
	startFlag = &cli.IntFlag{
		Name:  "start",
		Usage: "first key index",
	}
	countFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "number of keys",
		Value: 1,
	}
	checksumFlag = &cli.BoolFlag{
		Name:  "checksum",
		Usage: "append address checksums, overrides Wallet.Checksum",
	}
	spongeFlag = &cli.StringFlag{
		Name:  "sponge",
		Usage: "sponge function, kerl or curl",
		Value: "kerl",
	}
	policyFlag = &cli.StringFlag{
		Name:  "policy",
		Usage: "decode error policy: strict, replace or ignore (messages also accept drop)",
		Value: "strict",
	}
	inputSliceFlag = &cli.StringSliceFlag{
		Name:  "input",
		Usage: "input as keyIndex[:balance], may be repeated",
	}
	changeFlag = &cli.StringFlag{
		Name:  "change",
		Usage: "change address, defaults to the address after the highest input",
	}
	fetchBalancesFlag = &cli.BoolFlag{
		Name:  "fetch-balances",
		Usage: "read input balances from the node",
	}
	timestampFlag = &cli.Int64Flag{
		Name:  "timestamp",
		Usage: "fix every transaction timestamp (unix seconds)",
	}
	outputFileFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write transaction trytes to this file instead of stdout",
	}
	bundleFileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "file with one transaction trytes string per line",
	}
	tailFlag = &cli.StringFlag{
		Name:  "tail",
		Usage: "tail transaction hash to fetch from the node",
	}
	messagesFlag = &cli.BoolFlag{
		Name:  "messages",
		Usage: "print the bundle messages",
	}
)

// setup loads the config, applies the global flags on top of it and
// starts the logger and the metrics endpoint.
func setup(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		return err
	}

	if ctx.IsSet(nodeFlag.Name) {
		cfg.Node.URL = ctx.String(nodeFlag.Name)
		if err := cfg.Node.CheckConfig(); err != nil {
			return err
		}
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = uint32(ctx.Uint64(verbosityFlag.Name))
	}
	if ctx.IsSet(jsonFormatFlag.Name) {
		cfg.Log.JSON = ctx.Bool(jsonFormatFlag.Name)
	}
	if ctx.IsSet(colorFormatFlag.Name) {
		cfg.Log.Color = ctx.Bool(colorFormatFlag.Name)
	}
	config.SetConfig(cfg)
	log.SetLogger(cfg.Log.Verbosity, cfg.Log.JSON, cfg.Log.Color)

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		startMetricsServer(addr)
	}
	return nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	go func() {
		log.Info("metrics server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()
}

func getSeed(ctx *cli.Context) (types.Seed, error) {
	s := strings.TrimSpace(ctx.String(seedFlag.Name))
	if s == "" {
		return "", fmt.Errorf("missing --%s (or IOTA_SEED)", seedFlag.Name)
	}
	return types.NewSeed(s)
}

func getSecurityLevel(ctx *cli.Context) int {
	if ctx.IsSet(securityFlag.Name) {
		return ctx.Int(securityFlag.Name)
	}
	return config.GetConfig().Wallet.SecurityLevel
}

func getChecksum(ctx *cli.Context) bool {
	if ctx.IsSet(checksumFlag.Name) {
		return ctx.Bool(checksumFlag.Name)
	}
	return config.GetConfig().Wallet.Checksum
}
