package planner

import (
	"context"
	"fmt"
	"math/big"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
	"github.com/ggonzalez94/creek-cli/internal/execution/ptb"
	"github.com/ggonzalez94/creek-cli/internal/providers"
)

// SpendPlan names the coin to spend and, when a split happened, the merged
// primary coin that still holds the change.
type SpendPlan struct {
	Spend        ptb.Argument
	Remainder    ptb.Argument
	HasRemainder bool
}

// AggregateCoins merges every coin of coinType held by owner into the first
// one and splits off exactly required. It only appends commands to b.
func AggregateCoins(ctx context.Context, chain providers.ChainReader, b *ptb.Builder, owner, coinType string, required *big.Int) (SpendPlan, error) {
	if required == nil || required.Sign() <= 0 {
		return SpendPlan{}, clierr.New(clierr.CodeInternal, "coin aggregation requires a positive amount")
	}
	coins, err := chain.Coins(ctx, owner, coinType)
	if err != nil {
		return SpendPlan{}, clierr.Wrap(clierr.CodeExternal, fmt.Sprintf("list %s coins", coinType), err)
	}
	coins = withBalance(coins)
	if len(coins) == 0 {
		return SpendPlan{}, clierr.New(clierr.CodeNoHoldings, fmt.Sprintf("no %s coins found", coinType))
	}
	total := new(big.Int)
	for _, coin := range coins {
		total.Add(total, coin.Balance)
	}
	if total.Cmp(required) < 0 {
		return SpendPlan{}, clierr.New(clierr.CodeInsufficientBalance, fmt.Sprintf("insufficient %s balance: need %s, have %s", coinType, required, total))
	}

	primary := b.Object(coins[0].ObjectID)
	if len(coins) == 1 && coins[0].Balance != nil && coins[0].Balance.Cmp(required) == 0 {
		return SpendPlan{Spend: primary}, nil
	}
	others := make([]ptb.Argument, 0, len(coins)-1)
	for _, coin := range coins[1:] {
		others = append(others, b.Object(coin.ObjectID))
	}
	b.MergeCoins(primary, others...)
	split := b.SplitCoins(primary, b.PureU64(required))
	return SpendPlan{Spend: split[0], Remainder: primary, HasRemainder: true}, nil
}

func withBalance(coins []providers.Coin) []providers.Coin {
	out := make([]providers.Coin, 0, len(coins))
	for _, coin := range coins {
		if coin.Balance != nil {
			out = append(out, coin)
		}
	}
	return out
}

// returnRemainders sends change coins back to owner in one transfer.
func returnRemainders(b *ptb.Builder, owner string, plans ...SpendPlan) {
	var objects []ptb.Argument
	for _, plan := range plans {
		if plan.HasRemainder {
			objects = append(objects, plan.Remainder)
		}
	}
	if len(objects) == 0 {
		return
	}
	b.TransferObjects(objects, b.PureAddress(owner))
}
