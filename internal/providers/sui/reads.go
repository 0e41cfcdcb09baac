package sui

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/suiclient"

	"github.com/ggonzalez94/creek-cli/internal/id"
	"github.com/ggonzalez94/creek-cli/internal/providers"
)

type ledgerCoin struct {
	objectID string
	balance  *big.Int
	ref      *sui.ObjectRef
}

// listCoins pages through suix_getCoins for owner, keeping each coin's ref
// so gas selection can pay with it directly.
func (c *Client) listCoins(ctx context.Context, owner, coinType string) ([]ledgerCoin, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	ct := sui.ObjectType(coinType)
	var (
		out    []ledgerCoin
		cursor string
	)
	for {
		req := &suiclient.GetCoinsRequest{Owner: addr, CoinType: &ct, Limit: pageLimit}
		if cursor != "" {
			req.Cursor = &cursor
		}
		var next *string
		err := c.do(ctx, "suix_getCoins", func(ctx context.Context) error {
			page, err := c.ledger.GetCoins(ctx, req)
			if err != nil {
				return err
			}
			for _, coin := range page.Data {
				objectID, err := id.NormalizeAddress(coin.CoinObjectId.String())
				if err != nil {
					return err
				}
				out = append(out, ledgerCoin{
					objectID: objectID,
					balance:  new(big.Int).Set(coin.Balance.Int),
					ref:      coin.Ref(),
				})
			}
			if page.HasNextPage {
				next = page.NextCursor
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if next == nil || *next == "" {
			return out, nil
		}
		cursor = *next
	}
}

// Coins lists every coin object of coinType owned by owner, following pagination.
func (c *Client) Coins(ctx context.Context, owner, coinType string) ([]providers.Coin, error) {
	coins, err := c.listCoins(ctx, owner, coinType)
	if err != nil {
		return nil, err
	}
	out := make([]providers.Coin, 0, len(coins))
	for _, coin := range coins {
		out = append(out, providers.Coin{
			ObjectID: coin.objectID,
			CoinType: coinType,
			Balance:  new(big.Int).Set(coin.balance),
		})
	}
	return out, nil
}

// OwnedObjects lists objects of exactly structType owned by owner, with the
// raw Move fields of each. The query goes over the JSON-RPC connection since
// callers walk untyped content.
func (c *Client) OwnedObjects(ctx context.Context, owner, structType string) ([]providers.OwnedObject, error) {
	query := map[string]any{
		"filter":  map[string]string{"StructType": structType},
		"options": map[string]bool{"showType": true, "showContent": true},
	}
	var (
		out    []providers.OwnedObject
		cursor json.RawMessage
	)
	for {
		var page objectPage
		if err := c.call(ctx, &page, "suix_getOwnedObjects", owner, query, cursorArg(cursor), pageLimit); err != nil {
			return nil, err
		}
		for _, item := range page.Data {
			if item.Data == nil {
				continue
			}
			obj := providers.OwnedObject{
				ObjectID: item.Data.ObjectID,
				Version:  uint64(item.Data.Version),
				Digest:   item.Data.Digest,
				Type:     item.Data.Type,
			}
			if item.Data.Content != nil {
				obj.Fields = item.Data.Content.Fields
				if obj.Type == "" {
					obj.Type = item.Data.Content.Type
				}
			}
			out = append(out, obj)
		}
		if !page.HasNextPage || cursorArg(page.NextCursor) == nil {
			return out, nil
		}
		cursor = page.NextCursor
	}
}
