package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates performance statistics over the closed trades of a ledger
// state. Built once per report, never mutated.
type Summary struct {
	Pair        string
	InitialCash float64
	FinalEquity float64
	Wins        []core.Trade
	Losses      []core.Trade
	Volume      float64
}

// Summarize splits the trade history into winners and losers and totals the
// traded volume.
func Summarize(pair string, state core.LedgerState, lastPrice float64) Summary {
	wins, losses := lo.FilterReject(state.Trades, func(t core.Trade, _ int) bool {
		return t.ProfitValue >= 0
	})

	return Summary{
		Pair:        pair,
		InitialCash: state.InitialCash,
		FinalEquity: state.Equity(lastPrice),
		Wins:        wins,
		Losses:      losses,
		Volume: lo.SumBy(state.Trades, func(t core.Trade) float64 {
			return t.Quantity * t.ExitPrice
		}),
	}
}

func (s Summary) profits() []float64 {
	all := append(s.Wins, s.Losses...)
	return lo.Map(all, func(t core.Trade, _ int) float64 { return t.ProfitValue })
}

// Profit is the total realized P&L across all closed trades.
func (s Summary) Profit() float64 {
	return lo.Sum(s.profits())
}

// WinRate is the fraction of closed trades that ended positive, in percent.
func (s Summary) WinRate() float64 {
	total := len(s.Wins) + len(s.Losses)
	if total == 0 {
		return 0
	}
	return float64(len(s.Wins)) / float64(total) * 100
}

// Payoff is the ratio of the average winning return to the average losing
// return.
func (s Summary) Payoff() float64 {
	if len(s.Wins) == 0 || len(s.Losses) == 0 {
		return 0
	}

	avgWin := stat.Mean(lo.Map(s.Wins, func(t core.Trade, _ int) float64 {
		return t.ProfitPercent
	}), nil)
	avgLoss := stat.Mean(lo.Map(s.Losses, func(t core.Trade, _ int) float64 {
		return t.ProfitPercent
	}), nil)
	if avgLoss == 0 {
		return 0
	}

	return avgWin / math.Abs(avgLoss)
}

// SQN is the system quality number, sqrt(n) * mean(profit) / stddev(profit).
func (s Summary) SQN() float64 {
	profits := s.profits()
	if len(profits) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(profits, nil)
	if std == 0 {
		return 0
	}
	return math.Sqrt(float64(len(profits))) * mean / std
}

// String renders the summary as a text table for logs and shutdown reports.
func (s Summary) String() string {
	builder := &strings.Builder{}
	table := tablewriter.NewWriter(builder)

	_, quote := exchange.SplitAssetQuote(s.Pair)
	data := [][]string{
		{"Pair", s.Pair},
		{"Trades", strconv.Itoa(len(s.Wins) + len(s.Losses))},
		{"Win", strconv.Itoa(len(s.Wins))},
		{"Loss", strconv.Itoa(len(s.Losses))},
		{"% Win", fmt.Sprintf("%.1f", s.WinRate())},
		{"Payoff", fmt.Sprintf("%.2f", s.Payoff())},
		{"SQN", fmt.Sprintf("%.2f", s.SQN())},
		{"Profit", fmt.Sprintf("%.4f %s", s.Profit(), quote)},
		{"Volume", fmt.Sprintf("%.4f %s", s.Volume, quote)},
		{"Equity", fmt.Sprintf("%.4f %s", s.FinalEquity, quote)},
	}

	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()

	return builder.String()
}
