package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/config"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/application"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var (
	version = "alpha"

	cntx      = context.Background()
	cfg       *config.Config
	walletSvc application.Service
)

var (
	datadirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory of the wallet",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "network of the account, mainnet or testnet",
	}
	ledgerURLFlag = cli.StringFlag{
		Name:  "ledger-url",
		Usage: "url of the ledger service",
	}
	credentialFlag = cli.StringFlag{
		Name:  "credential",
		Usage: "ledger service credential, prompted if not set",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose",
		Usage: "enable debug logs",
	}
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "xchwallet"
	app.Usage = "Command line interface for the enclave wallet account"
	app.Flags = []cli.Flag{
		&datadirFlag, &networkFlag, &ledgerURLFlag, &credentialFlag, &verboseFlag,
	}
	app.Commands = append(
		app.Commands,
		&balanceCommand,
		&coinsCommand,
		&receiveCommand,
		&addressCommand,
		&sendCommand,
		&offersCommand,
		&metadataCommand,
		&backupCommand,
	)

	app.Before = func(ctx *cli.Context) error {
		log.SetLevel(log.WarnLevel)
		if ctx.Bool(verboseFlag.Name) {
			log.SetLevel(log.DebugLevel)
		}

		var err error
		if cfg, err = config.LoadConfig(); err != nil {
			return err
		}
		if datadir := cleanAndExpandPath(ctx.String(datadirFlag.Name)); datadir != "" {
			cfg.Datadir = datadir
			cfg.DbDir = filepath.Join(datadir, "db")
		}
		if network := ctx.String(networkFlag.Name); network != "" {
			cfg.Network = strings.ToLower(network)
		}
		if url := ctx.String(ledgerURLFlag.Name); url != "" {
			cfg.LedgerURL = url
		}
		if credential := ctx.String(credentialFlag.Name); credential != "" {
			cfg.LedgerCredential = credential
		}
		return nil
	}

	app.After = func(ctx *cli.Context) error {
		if walletSvc != nil {
			walletSvc.Stop()
		}
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

// getWalletService lazily builds the wallet service so that offline
// commands never touch the store or the network.
func getWalletService() (application.Service, error) {
	if walletSvc != nil {
		return walletSvc, nil
	}

	if cfg.LedgerCredential == "" {
		credential, err := readCredential()
		if err != nil {
			return nil, err
		}
		cfg.LedgerCredential = credential
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	svc, err := cfg.AppService()
	if err != nil {
		return nil, err
	}

	walletSvc = svc
	return walletSvc, nil
}

func readCredential() (string, error) {
	fmt.Print("ledger service credential: ")
	credential, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // new line
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(credential)), nil
}

func printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Println(string(jsonBytes))
	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
