package notification

import (
	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/logger"
)

// LogNotifier writes trade events to the structured log. It is the default
// notifier when Telegram is not configured.
type LogNotifier struct {
	mode core.Mode
	log  logger.Logger
}

func NewLog(mode core.Mode, log logger.Logger) *LogNotifier {
	return &LogNotifier{mode: mode, log: log}
}

func (n *LogNotifier) Notify(message string) {
	n.log.Info(message)
}

func (n *LogNotifier) OnOpen(pair string, position core.Position) {
	n.log.Infof("%s opened long %s: qty=%.6f entry=%.4f",
		n.mode.Tag(), pair, position.Quantity, position.EntryPrice)
}

func (n *LogNotifier) OnClose(pair string, trade core.Trade) {
	n.log.Infof("%s closed long %s: entry=%.4f exit=%.4f qty=%.6f profit=%.4f (%.2f%%)",
		n.mode.Tag(), pair, trade.EntryPrice, trade.ExitPrice, trade.Quantity,
		trade.ProfitValue, trade.ProfitPercent*100)
}

func (n *LogNotifier) OnError(err error) {
	n.log.WithError(err).Error("trading error")
}
