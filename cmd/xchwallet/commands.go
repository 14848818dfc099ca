package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/application"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/address"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/units"
	"github.com/urfave/cli/v2"
)

var (
	assetFlag = cli.StringFlag{
		Name:  "asset",
		Usage: "coins to show: xch, nft, any or a CAT asset id",
		Value: "xch",
	}
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "sync with the ledger service even if the cached coins are fresh",
	}
	toFlag = cli.StringFlag{
		Name:     "to",
		Usage:    "recipient address",
		Required: true,
	}
	amountFlag = cli.StringFlag{
		Name:     "amount",
		Usage:    "amount to send in XCH",
		Required: true,
	}
	feeFlag = cli.StringFlag{
		Name:  "fee",
		Usage: "network fee in XCH",
		Value: "0",
	}
	puzzleHashFlag = cli.StringFlag{
		Name:     "puzzle-hash",
		Usage:    "hex encoded puzzle hash",
		Required: true,
	}
	prefixFlag = cli.StringFlag{
		Name:  "prefix",
		Usage: "address prefix, defaults to the network one",
	}
	addressFlag = cli.StringFlag{
		Name:     "address",
		Usage:    "address to decode",
		Required: true,
	}
	coinFlag = cli.StringFlag{
		Name:     "coin",
		Usage:    "coin id",
		Required: true,
	}
)

var (
	balanceCommand = cli.Command{
		Name:  "balance",
		Usage: "Shows the balance of the account",
		Action: func(ctx *cli.Context) error {
			return balance(ctx)
		},
		Flags: []cli.Flag{&assetFlag},
	}

	coinsCommand = cli.Command{
		Name:  "coins",
		Usage: "Lists the unspent coins of the account",
		Action: func(ctx *cli.Context) error {
			return coins(ctx)
		},
		Flags: []cli.Flag{&assetFlag, &forceFlag},
	}

	receiveCommand = cli.Command{
		Name:  "receive",
		Usage: "Shows the receiving address of the account",
		Action: func(ctx *cli.Context) error {
			return receive(ctx)
		},
	}

	addressCommand = cli.Command{
		Name:  "address",
		Usage: "Encodes and decodes addresses",
		Subcommands: []*cli.Command{
			{
				Name:   "encode",
				Usage:  "Encodes a puzzle hash into an address",
				Action: encodeAddress,
				Flags:  []cli.Flag{&puzzleHashFlag, &prefixFlag},
			},
			{
				Name:   "decode",
				Usage:  "Decodes an address into its puzzle hash",
				Action: decodeAddress,
				Flags:  []cli.Flag{&addressFlag},
			},
		},
	}

	sendCommand = cli.Command{
		Name:  "send",
		Usage: "Sends XCH to an address",
		Action: func(ctx *cli.Context) error {
			return send(ctx)
		},
		Flags: []cli.Flag{&toFlag, &amountFlag, &feeFlag},
	}

	metadataCommand = cli.Command{
		Name:  "metadata",
		Usage: "Shows the metadata of an NFT coin",
		Action: func(ctx *cli.Context) error {
			return metadata(ctx)
		},
		Flags: []cli.Flag{&coinFlag},
	}
)

func balance(ctx *cli.Context) error {
	filter, decimals, err := parseAssetFilter(ctx.String(assetFlag.Name))
	if err != nil {
		return err
	}
	svc, err := getWalletService()
	if err != nil {
		return err
	}

	view := svc.Balance(cntx, filter)
	resp := map[string]interface{}{
		"state":   view.State.String(),
		"balance": units.Format(view.Balance, decimals),
		"amount":  view.Balance,
		"coins":   len(view.Coins),
		"stale":   view.Stale,
	}
	if !view.FetchedAt.IsZero() {
		resp["fetched_at"] = view.FetchedAt.Format(time.RFC3339)
	}
	if view.BalanceError != nil {
		resp["error"] = view.BalanceError.Error()
	}
	return printJSON(resp)
}

func coins(ctx *cli.Context) error {
	filter, _, err := parseAssetFilter(ctx.String(assetFlag.Name))
	if err != nil {
		return err
	}
	svc, err := getWalletService()
	if err != nil {
		return err
	}

	snapshot, err := svc.Sync(cntx, ctx.Bool(forceFlag.Name))
	if err != nil {
		return err
	}

	list := make([]map[string]interface{}, 0, len(snapshot.Coins))
	for _, c := range snapshot.Filter(filter) {
		list = append(list, coinView(c))
	}
	return printJSON(list)
}

func receive(ctx *cli.Context) error {
	svc, err := getWalletService()
	if err != nil {
		return err
	}

	addr, err := svc.ReceiveAddress(cntx)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"address": addr,
	})
}

func encodeAddress(ctx *cli.Context) error {
	network, err := address.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}
	codec := address.NewCodec(network)

	puzzleHash, err := hex.DecodeString(
		strings.TrimPrefix(ctx.String(puzzleHashFlag.Name), "0x"),
	)
	if err != nil {
		return fmt.Errorf("invalid puzzle hash: %s", err)
	}
	prefix := ctx.String(prefixFlag.Name)
	if prefix == "" {
		prefix = network.Prefix()
	}

	addr, err := codec.Encode(puzzleHash, prefix)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"address": addr,
	})
}

func decodeAddress(ctx *cli.Context) error {
	network, err := address.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}

	decoded, err := address.NewCodec(network).Decode(ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"prefix":      decoded.Prefix,
		"puzzle_hash": "0x" + hex.EncodeToString(decoded.PuzzleHash[:]),
	})
}

func send(ctx *cli.Context) error {
	amount, err := units.ParseXCH(ctx.String(amountFlag.Name))
	if err != nil {
		return err
	}
	fee, err := units.ParseXCH(ctx.String(feeFlag.Name))
	if err != nil {
		return err
	}
	svc, err := getWalletService()
	if err != nil {
		return err
	}

	txid, err := svc.Send(cntx, application.SendRequest{
		Recipient: ctx.String(toFlag.Name),
		Amount:    amount,
		Fee:       fee,
	})
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"txid": txid,
	})
}

func metadata(ctx *cli.Context) error {
	coinID, err := domain.HashFromHex(ctx.String(coinFlag.Name))
	if err != nil {
		return err
	}
	svc, err := getWalletService()
	if err != nil {
		return err
	}

	snapshot, err := svc.Sync(cntx, false)
	if err != nil {
		return err
	}
	coin, ok := snapshot.Coin(coinID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCoinNotOwned, coinID)
	}
	if coin.Kind() != domain.NFTKind {
		return fmt.Errorf("coin %s is not an nft", coinID)
	}

	payload, err := svc.Metadata().ResolveCoin(cntx, coin).
		UnwrapOrErr(fmt.Errorf("metadata of coin %s not available", coinID))
	if err != nil {
		return err
	}
	return printJSON(payload)
}

// parseAssetFilter returns the coin filter for asset along with the number
// of decimals its amounts are shown with.
func parseAssetFilter(asset string) (domain.CoinFilter, int32, error) {
	switch strings.ToLower(asset) {
	case "", "xch":
		return domain.StandardCoins, units.XCHDecimals, nil
	case "nft":
		return domain.NFTCoins, 0, nil
	case "any":
		return domain.AnyCoins, 0, nil
	}

	assetID, err := domain.HashFromHex(asset)
	if err != nil {
		return domain.CoinFilter{}, 0, fmt.Errorf("invalid asset %s: %s", asset, err)
	}
	return domain.CATCoins(assetID), units.CATDecimals, nil
}

func coinView(c domain.HydratedCoin) map[string]interface{} {
	view := map[string]interface{}{
		"id":             c.ID().String(),
		"parent_coin_id": c.ParentCoinInfo.String(),
		"puzzle_hash":    c.PuzzleHash.String(),
		"amount":         c.Amount,
		"created_height": c.CreatedHeight,
		"kind":           c.Kind().String(),
	}
	switch d := c.Driver.(type) {
	case domain.CATDriver:
		view["asset_id"] = d.AssetID.String()
	case domain.NFTDriver:
		view["launcher_id"] = d.LauncherID.String()
		if len(d.MetadataURIs) > 0 {
			view["metadata_uris"] = d.MetadataURIs
		}
	}
	return view
}
