package main

import (
	"errors"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/application"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/units"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/urfave/cli/v2"
)

var (
	offerIDFlag = cli.StringFlag{
		Name:     "id",
		Usage:    "offer id",
		Required: true,
	}
	requestedAmountFlag = cli.StringFlag{
		Name:     "amount",
		Usage:    "requested amount, in XCH or in units of the requested asset",
		Required: true,
	}
	requestedAssetFlag = cli.StringFlag{
		Name:  "asset",
		Usage: "requested CAT asset id, XCH if not set",
	}
	depositAddressFlag = cli.StringFlag{
		Name:  "deposit-address",
		Usage: "address receiving the requested payment, defaults to the account one",
	}
	expiresInFlag = cli.DurationFlag{
		Name:  "expires-in",
		Usage: "how long the offer stays active, never expires if not set",
	}
	submitFlag = cli.BoolFlag{
		Name:  "submit",
		Usage: "post the offer to the marketplace once created",
	}
	statusFlag = cli.StringFlag{
		Name:     "status",
		Usage:    "new status of the offer: completed, cancelled or expired",
		Required: true,
	}
)

var offersCommand = cli.Command{
	Name:  "offers",
	Usage: "Manages trade offers of the account coins",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "Lists the saved offers",
			Action: listOffers,
		},
		{
			Name:   "create",
			Usage:  "Creates an offer for one of the account coins",
			Action: createOffer,
			Flags: []cli.Flag{
				&coinFlag, &requestedAmountFlag, &requestedAssetFlag,
				&depositAddressFlag, &expiresInFlag, &submitFlag,
			},
		},
		{
			Name:   "submit",
			Usage:  "Posts an active offer to the marketplace",
			Action: submitOffer,
			Flags:  []cli.Flag{&offerIDFlag},
		},
		{
			Name:   "status",
			Usage:  "Updates the status of an offer",
			Action: updateOfferStatus,
			Flags:  []cli.Flag{&offerIDFlag, &statusFlag},
		},
	},
}

func listOffers(ctx *cli.Context) error {
	svc, err := getWalletService()
	if err != nil {
		return err
	}
	if _, err := svc.Sync(cntx, false); err != nil {
		return err
	}

	offers, err := svc.Offers().ListOffers(cntx)
	if err != nil {
		return err
	}
	list := make([]map[string]interface{}, 0, len(offers))
	for i := range offers {
		list = append(list, offerView(&offers[i]))
	}
	return printJSON(list)
}

func createOffer(ctx *cli.Context) error {
	coinID, err := domain.HashFromHex(ctx.String(coinFlag.Name))
	if err != nil {
		return err
	}

	assetID := fn.None[domain.Hash]()
	decimals := int32(units.XCHDecimals)
	if asset := ctx.String(requestedAssetFlag.Name); asset != "" {
		id, err := domain.HashFromHex(asset)
		if err != nil {
			return err
		}
		assetID = fn.Some(id)
		decimals = units.CATDecimals
	}
	amount, err := units.Parse(ctx.String(requestedAmountFlag.Name), decimals)
	if err != nil {
		return err
	}

	svc, err := getWalletService()
	if err != nil {
		return err
	}
	depositAddress := ctx.String(depositAddressFlag.Name)
	if depositAddress == "" {
		if depositAddress, err = svc.ReceiveAddress(cntx); err != nil {
			return err
		}
	} else if _, err := svc.Sync(cntx, false); err != nil {
		return err
	}

	req := application.CreateOfferRequest{
		OfferedCoinID:    coinID,
		RequestedAmount:  amount,
		RequestedAssetID: assetID,
		DepositAddress:   depositAddress,
		ExpiresIn:        ctx.Duration(expiresInFlag.Name),
	}
	if !ctx.Bool(submitFlag.Name) {
		offer, err := svc.Offers().CreateOffer(cntx, req)
		if err != nil {
			return err
		}
		return printJSON(offerView(offer))
	}

	offer, err := svc.Offers().CreateAndSubmit(cntx, req)
	if err != nil {
		var submissionErr *domain.SubmissionError
		if offer == nil || !errors.As(err, &submissionErr) {
			return err
		}
		// The offer is saved, it can be posted again with the submit command.
		view := offerView(offer)
		view["submission_error"] = err.Error()
		return printJSON(view)
	}
	return printJSON(offerView(offer))
}

func submitOffer(ctx *cli.Context) error {
	svc, err := getWalletService()
	if err != nil {
		return err
	}
	if _, err := svc.Sync(cntx, false); err != nil {
		return err
	}

	offer, err := svc.Offers().SubmitToMarketplace(cntx, ctx.String(offerIDFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(offerView(offer))
}

func updateOfferStatus(ctx *cli.Context) error {
	status, err := domain.ParseOfferStatus(ctx.String(statusFlag.Name))
	if err != nil {
		return err
	}
	svc, err := getWalletService()
	if err != nil {
		return err
	}
	if _, err := svc.Sync(cntx, false); err != nil {
		return err
	}

	offer, err := svc.Offers().UpdateStatus(cntx, ctx.String(offerIDFlag.Name), status)
	if err != nil {
		return err
	}
	return printJSON(offerView(offer))
}

func offerView(o *domain.SavedOffer) map[string]interface{} {
	view := map[string]interface{}{
		"id":               o.ID,
		"status":           o.Status.String(),
		"created_at":       o.CreatedAt.Format(time.RFC3339),
		"updated_at":       o.UpdatedAt.Format(time.RFC3339),
		"offered_coin":     coinView(o.OfferedCoin),
		"requested_amount": o.Requested.Amount,
		"deposit_address":  o.Requested.DepositAddress,
		"offer":            o.OfferBlob,
	}
	o.Requested.AssetID.WhenSome(func(id domain.Hash) {
		view["requested_asset_id"] = id.String()
	})
	o.MarketplaceID.WhenSome(func(id string) {
		view["marketplace_id"] = id
	})
	o.MarketplaceURL.WhenSome(func(url string) {
		view["marketplace_url"] = url
	})
	o.ExpiresAt.WhenSome(func(t time.Time) {
		view["expires_at"] = t.Format(time.RFC3339)
	})
	return view
}
