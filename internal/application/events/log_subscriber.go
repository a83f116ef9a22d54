package events

import (
	"context"

	"github.com/jhoicas/stockflow/pkg/logger"
)

// LogSubscriber registra cada evento con zerolog.
func LogSubscriber(log *logger.Logger) Subscriber {
	return func(_ context.Context, ev Event) {
		e := log.Info().Str("event", string(ev.Type)).Str("actor", ev.Actor)
		if ev.Request != nil {
			e = e.Str("request_id", ev.Request.ID).
				Str("request_type", string(ev.Request.Type)).
				Str("status", string(ev.Request.Status)).
				Str("assigned_to", ev.Request.AssignedTo)
		}
		if ev.Movement != nil {
			e = e.Int64("movement_id", ev.Movement.ID).
				Str("stock_item_id", ev.Movement.StockItemID).
				Str("from", ev.Movement.FromHolderID).
				Str("to", ev.Movement.ToHolderID).
				Int64("quantity", ev.Movement.Quantity)
		}
		e.Msg("evento de dominio")
	}
}
