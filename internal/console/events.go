package console

import (
    "deliverydesk/internal/model"
    "deliverydesk/internal/route"
)

// Event is everything the controller reacts to. The set is closed.
type Event interface{ isEvent() }

// ConnectivityChanged reports the environment's online flag. Only the
// offline to online edge drains the queue.
type ConnectivityChanged struct{ Online bool }

// StoreChanged is a push notification from the remote store.
type StoreChanged struct{ Change model.Change }

// EditingChanged tells the controller an operator form is open, which holds
// back refreshes until it closes.
type EditingChanged struct{ Editing bool }

type MarkDelivered struct{ ID string }
type UnmarkDelivered struct{ ID string }
type DeleteOrder struct{ ID string }
type VoidOrder struct{ ID string }
type ReactivateOrder struct{ ID string }

// RescheduleOrder moves an order to Date, or to the next business day when Date is empty.
type RescheduleOrder struct {
    ID   string
    Date string
}

type SetPriority struct {
    ID   string
    Tier model.PriorityTier
}

// SetSequence carries raw operator input; it is clamped before use.
type SetSequence struct {
    ID    string
    Value any
}

type MoveOrder struct {
    ID        string
    Direction route.Direction
}

type SettleMixedPayment struct{ ID string }
type ConfirmTransfer struct{ ID string }

// CreateOrder inserts a new order. An empty Order.ID is filled in.
type CreateOrder struct{ Order model.Order }

// AssignCourier hands the order to a courier; an empty Courier clears it.
type AssignCourier struct {
    ID      string
    Courier string
}

// OrderEdit is the operator-editable part of an order. The total is derived
// from the items.
type OrderEdit struct {
    CustomerName  string
    Address       string
    Phone         string
    PaymentMethod model.PaymentMethod
    Date          string
    Notes         string
    Items         []model.OrderItem
}

type EditOrder struct {
    ID   string
    Edit OrderEdit
}

type Refresh struct{}

func (ConnectivityChanged) isEvent() {}
func (StoreChanged) isEvent()        {}
func (EditingChanged) isEvent()      {}
func (MarkDelivered) isEvent()       {}
func (UnmarkDelivered) isEvent()     {}
func (DeleteOrder) isEvent()         {}
func (VoidOrder) isEvent()           {}
func (ReactivateOrder) isEvent()     {}
func (RescheduleOrder) isEvent()     {}
func (SetPriority) isEvent()         {}
func (SetSequence) isEvent()         {}
func (MoveOrder) isEvent()           {}
func (SettleMixedPayment) isEvent()  {}
func (ConfirmTransfer) isEvent()     {}
func (CreateOrder) isEvent()         {}
func (AssignCourier) isEvent()       {}
func (EditOrder) isEvent()           {}
func (Refresh) isEvent()             {}
