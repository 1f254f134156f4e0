package route

import (
    "regexp"
    "sort"
    "strings"

    "golang.org/x/text/collate"
    "golang.org/x/text/language"

    "deliverydesk/internal/model"
)

const (
    unnamedProduct  = "unnamed product"
    unnamedCustomer = "unnamed customer"
)

var (
    spaceRun    = regexp.MustCompile(`\s+`)
    parenthesed = regexp.MustCompile(`\(.*?\)`)
)

// LoadSummary lists every item of every pending order, one line each, grouped
// by tier and sorted by product name so equal products sit together.
func LoadSummary(orders []model.Order) model.LoadSummary {
    lines := map[model.PriorityTier][]model.LoadLine{}
    for _, o := range orders {
        if o.Delivered || len(o.Items) == 0 { continue }
        tier := o.PriorityTier.OrDefault()
        customer := strings.TrimSpace(o.CustomerName)
        if customer == "" { customer = unnamedCustomer }
        for _, it := range o.Items {
            name := strings.TrimSpace(it.Name)
            if name == "" { name = unnamedProduct }
            qty := int64(it.Quantity)
            if qty <= 0 { qty = 1 }
            lines[tier] = append(lines[tier], model.LoadLine{
                Name:     name,
                Quantity: qty,
                Customer: customer,
                OrderID:  o.ID,
                CheckID:  "chk_pedido" + o.ID + "_" + normalizeProductName(name),
            })
        }
    }

    out := model.LoadSummary{Tiers: map[model.PriorityTier]model.TierLoad{}}
    coll := collate.New(language.Spanish)
    for _, tier := range []model.PriorityTier{model.TierA, model.TierB, model.TierC} {
        items := lines[tier]
        sort.SliceStable(items, func(i, j int) bool {
            return coll.CompareString(items[i].Name, items[j].Name) < 0
        })
        tl := model.TierLoad{Items: items}
        if tl.Items == nil { tl.Items = []model.LoadLine{} }
        for _, it := range items { tl.Bulk += it.Quantity }
        out.Tiers[tier] = tl
        out.TotalBulk += tl.Bulk
    }
    return out
}

func normalizeProductName(name string) string {
    n := spaceRun.ReplaceAllString(strings.ToLower(name), " ")
    return strings.TrimSpace(parenthesed.ReplaceAllString(n, ""))
}
