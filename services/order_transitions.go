package services

import (
	"fmt"

	"homechef/entity"
	"homechef/pkg/apperr"
)

// Actor is who asks for a status change.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorSeller   Actor = "seller"
	ActorSystem   Actor = "system"
)

// Step is the effect of an allowed transition.
type Step struct {
	To entity.OrderStatus
	// Stamp is the timestamp column set on entry; empty for pending.
	Stamp   string
	Restock bool
	NoOp    bool
}

type edge struct {
	from, to entity.OrderStatus
}

var transitions = map[edge][]Actor{
	{entity.OrderStatusPending, entity.OrderStatusConfirmed}:        {ActorSeller, ActorSystem},
	{entity.OrderStatusConfirmed, entity.OrderStatusPreparing}:      {ActorSeller},
	{entity.OrderStatusPreparing, entity.OrderStatusReady}:          {ActorSeller},
	{entity.OrderStatusReady, entity.OrderStatusOutForDelivery}:     {ActorSeller},
	{entity.OrderStatusOutForDelivery, entity.OrderStatusDelivered}: {ActorSeller},
	{entity.OrderStatusReady, entity.OrderStatusDelivered}:          {ActorSeller},
	{entity.OrderStatusPending, entity.OrderStatusCancelled}:        {ActorSeller, ActorSystem},
	{entity.OrderStatusConfirmed, entity.OrderStatusCancelled}:      {ActorSeller, ActorSystem},
}

var stampColumns = map[entity.OrderStatus]string{
	entity.OrderStatusConfirmed:      "confirmed_at",
	entity.OrderStatusPreparing:      "preparing_at",
	entity.OrderStatusReady:          "ready_at",
	entity.OrderStatusOutForDelivery: "out_for_delivery_at",
	entity.OrderStatusDelivered:      "delivered_at",
	entity.OrderStatusCancelled:      "cancelled_at",
}

func allowed(actors []Actor, a Actor) bool {
	for _, x := range actors {
		if x == a {
			return true
		}
	}
	return false
}

// canEnter reports whether actor holds any edge into status.
func canEnter(status entity.OrderStatus, actor Actor) bool {
	for e, actors := range transitions {
		if e.to == status && allowed(actors, actor) {
			return true
		}
	}
	return false
}

// Transition decides whether actor may move an order from one status to another.
// Repeating a terminal status is a no-op for an actor that could have entered it.
func Transition(from, to entity.OrderStatus, actor Actor) (Step, error) {
	if !from.Valid() || !to.Valid() {
		return Step{}, apperr.ErrIllegalTransition.With(fmt.Sprintf("unknown status %q -> %q", from, to))
	}
	if actor != ActorSeller && actor != ActorSystem {
		return Step{}, apperr.ErrForbidden.With(fmt.Sprintf("%s may not change order status", actor))
	}

	if from == to && to.Terminal() {
		if !canEnter(to, actor) {
			return Step{}, apperr.ErrForbidden.With(fmt.Sprintf("%s may not move an order to %s", actor, to))
		}
		return Step{To: to, NoOp: true}, nil
	}

	actors, ok := transitions[edge{from, to}]
	if !ok {
		return Step{}, apperr.ErrIllegalTransition.With(fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	if !allowed(actors, actor) {
		return Step{}, apperr.ErrForbidden.With(fmt.Sprintf("%s may not move an order from %s to %s", actor, from, to))
	}
	return Step{
		To:      to,
		Stamp:   stampColumns[to],
		Restock: to == entity.OrderStatusCancelled,
	}, nil
}
