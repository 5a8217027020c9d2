package service

import (
	"encoding/json"
	"fmt"

	"github.com/ikkim/storefront-cart/internal/app/model"
)

// cartStateVersion is written with every payload. Payloads without a
// version tag are read as version 0.
const cartStateVersion = 0

type cartStateBody struct {
	Items []model.CartItem `json:"items"`
}

// cartPayload mirrors the storefront's persisted layout,
// {"state":{"items":[...]},"version":0}. Older payloads kept the items at
// the top level with no wrapper.
type cartPayload struct {
	State   *cartStateBody   `json:"state,omitempty"`
	Version *int             `json:"version,omitempty"`
	Items   []model.CartItem `json:"items,omitempty"`
}

func encodeCart(items []model.CartItem) ([]byte, error) {
	version := cartStateVersion
	if items == nil {
		items = []model.CartItem{}
	}
	return json.Marshal(cartPayload{
		State:   &cartStateBody{Items: items},
		Version: &version,
	})
}

// decodeCart returns the stored items, dropping entries that would break
// the one-item-per-product invariant (blank ids and repeated ids).
func decodeCart(payload []byte) ([]model.CartItem, int, error) {
	var p cartPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, 0, fmt.Errorf("failed to decode cart payload: %w", err)
	}
	if p.Version != nil && *p.Version > cartStateVersion {
		return nil, 0, fmt.Errorf("unsupported cart payload version %d", *p.Version)
	}

	raw := p.Items
	if p.State != nil {
		raw = p.State.Items
	}

	items := make([]model.CartItem, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	dropped := 0
	for _, item := range raw {
		if !item.HasID() {
			dropped++
			continue
		}
		if _, dup := seen[item.ID]; dup {
			dropped++
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, dropped, nil
}
