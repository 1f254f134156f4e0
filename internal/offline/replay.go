package offline

import (
    "context"
    "errors"
    "fmt"

    "deliverydesk/internal/model"
    "deliverydesk/internal/store"
)

var (
    ErrUnknownKind    = errors.New("unknown action kind")
    ErrInvalidPayload = errors.New("invalid action payload")
)

// editableFields are the order fields an EditOrder action may carry.
var editableFields = []string{"customerName", "address", "phone", "paymentMethod", "date", "items", "notes", "total", "updatedAt"}

// RemotePatch returns the field update a kind applies to the order.
// Delete has no patch; callers check the kind first.
func RemotePatch(kind model.ActionKind, payload map[string]any) (model.Record, error) {
    switch kind {
    case model.ActionMarkDelivered:
        return model.Record{"delivered": true}, nil
    case model.ActionUnmarkDelivered:
        return model.Record{"delivered": false}, nil
    case model.ActionVoid:
        return model.Record{"delivered": true, "status": model.StatusVoided}, nil
    case model.ActionReactivate:
        return model.Record{"delivered": false, "status": ""}, nil
    case model.ActionReschedule:
        date, _ := payload["date"].(string)
        if date == "" { return nil, fmt.Errorf("%w: missing date", ErrInvalidPayload) }
        return model.Record{"date": date}, nil
    case model.ActionSetPriority:
        tier, _ := payload["priority"].(string)
        if !model.PriorityTier(tier).Valid() { return nil, fmt.Errorf("%w: priority %q", ErrInvalidPayload, tier) }
        return model.Record{"priorityTier": tier}, nil
    case model.ActionSetSequence:
        return model.Record{"sequenceNumber": model.ParseNonNegative(payload["sequence"])}, nil
    case model.ActionSettleMixedPayment:
        method, _ := payload["paymentMethod"].(string)
        if method == "" { return nil, fmt.Errorf("%w: missing paymentMethod", ErrInvalidPayload) }
        notes, _ := payload["notes"].(string)
        return model.Record{"paymentMethod": method, "notes": notes}, nil
    case model.ActionAssignCourier:
        courier, _ := payload["courier"].(string)
        if courier == "" { return model.Record{"assignedTo": nil}, nil }
        return model.Record{"assignedTo": courier}, nil
    case model.ActionEditOrder:
        patch := model.Record{}
        for _, k := range editableFields {
            if v, ok := payload[k]; ok { patch[k] = v }
        }
        if len(patch) == 0 { return nil, fmt.Errorf("%w: nothing to edit", ErrInvalidPayload) }
        return patch, nil
    case model.ActionDelete:
        return nil, nil
    }
    return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Replay performs the remote mutation for one queued action.
func Replay(ctx context.Context, s store.Store, a model.PendingAction) error {
    id := a.OrderID()
    if id == "" { return fmt.Errorf("%w: missing order id", ErrInvalidPayload) }
    if a.Kind == model.ActionDelete {
        return s.Delete(ctx, model.CollectionOrders, id)
    }
    patch, err := RemotePatch(a.Kind, a.Payload)
    if err != nil { return err }
    return s.Update(ctx, model.CollectionOrders, id, patch)
}
