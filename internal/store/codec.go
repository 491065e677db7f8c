package store

import (
	"costtracker/internal/core"
	"costtracker/internal/docstore"
)

// ItemCodec maps core.Item to its stored fields.
var ItemCodec = Codec[core.Item]{
	Encode: func(it core.Item) map[string]any {
		return map[string]any{"name": it.Name, "cost": it.Cost}
	},
	Decode: func(doc docstore.Document) core.Item {
		return core.Item{
			ID:   doc.ID,
			Name: stringField(doc.Fields, "name"),
			Cost: floatField(doc.Fields, "cost"),
		}
	},
	ID: func(it core.Item) string { return it.ID },
}

// OtherCostCodec maps core.OtherCost to its stored fields.
var OtherCostCodec = Codec[core.OtherCost]{
	Encode: func(oc core.OtherCost) map[string]any {
		return map[string]any{"description": oc.Description, "amount": oc.Amount}
	},
	Decode: func(doc docstore.Document) core.OtherCost {
		return core.OtherCost{
			ID:          doc.ID,
			Description: stringField(doc.Fields, "description"),
			Amount:      floatField(doc.Fields, "amount"),
		}
	},
	ID: func(oc core.OtherCost) string { return oc.ID },
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// floatField tolerates the numeric types JSON decoding and the backends
// produce.
func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
