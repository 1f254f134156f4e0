// Package reconcile computes the end-of-day cash picture from delivered orders.
package reconcile

import (
    "context"

    "deliverydesk/internal/model"
)

const (
    msgMixedPending   = "mixed payment pending without a cash amount in notes; counted entirely as pending transfer. Write e.g. \"15000 efectivo\" in the notes"
    msgMixedConfirmed = "mixed payment confirmed without a cash amount in notes; counted entirely as settled transfer. Write e.g. \"15000 efectivo\" in the notes"
)

// ComputeSummary classifies every delivered, non-voided order. It has no side
// effects; advisories are returned on the summary for the caller to surface.
func ComputeSummary(orders []model.Order) model.ReconciliationSummary {
    var s model.ReconciliationSummary
    for _, o := range orders {
        if !o.Delivered || o.Voided() { continue }
        total := o.ResolvedTotal()
        if total <= 0 { continue }

        switch o.PaymentMethod {
        case model.PaymentMixedPending:
            if c, ok := ExtractCashAmount(o.Notes, total); ok {
                s.Cash.Add(c)
                addIfPositive(&s.TransferPending, total-c)
                s.TotalRecognizedRevenue += c
            } else {
                s.TransferPending.Add(total)
                s.Advisories = append(s.Advisories, model.Advisory{Category: model.PaymentMixedPending, OrderID: o.ID, Message: msgMixedPending})
            }
            continue
        case model.PaymentMixedConfirmed:
            if c, ok := ExtractCashAmount(o.Notes, total); ok {
                s.Cash.Add(c)
                addIfPositive(&s.Settled, total-c)
            } else {
                s.Settled.Add(total)
                s.Advisories = append(s.Advisories, model.Advisory{Category: model.PaymentMixedConfirmed, OrderID: o.ID, Message: msgMixedConfirmed})
            }
            s.TotalRecognizedRevenue += total
            continue
        }

        if isLegacyMixed(o.Notes) {
            b := parseLegacy(o.Notes)
            if b.hasCash { s.Cash.Add(b.cash) }
            if b.hasCard { s.Card.Add(b.card) }
            if b.hasTransfer {
                if b.transferConfirmed {
                    s.Settled.Add(b.transfer)
                } else {
                    s.TransferPending.Add(b.transfer)
                }
            }
            s.TotalRecognizedRevenue += total
            continue
        }

        switch o.PaymentMethod {
        case model.PaymentCard:
            s.Card.Add(total)
        case model.PaymentTransferPending:
            s.TransferPending.Add(total)
        case model.PaymentTransferConfirmed, model.PaymentAlreadySettled:
            s.Settled.Add(total)
        default:
            s.Cash.Add(total)
        }
        s.TotalRecognizedRevenue += total
    }
    s.AmountOwedByCourier = s.Cash.Amount + s.Card.Amount
    return s
}

// ComputeSummaryWithAdvisor computes the summary and passes its advisories
// through adv, which shows each category once.
func ComputeSummaryWithAdvisor(ctx context.Context, orders []model.Order, adv *Advisor) model.ReconciliationSummary {
    s := ComputeSummary(orders)
    if adv != nil {
        for _, a := range s.Advisories { adv.Advise(ctx, a) }
    }
    return s
}

func addIfPositive(b *model.Bucket, amount int64) {
    if amount > 0 { b.Add(amount) }
}
