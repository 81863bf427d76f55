package stripewebhooks

import (
	"encoding/json"
	"errors"
	"fmt"
)

type paymentEvent struct {
	Customer string
	Paid     bool
}

type paymentObject struct {
	Customer string `json:"customer"`
	Paid     *bool  `json:"paid"`
}

// envelope accepts both the bare {"object": ...} body and Stripe's event
// shape, where the object sits under data.object.
type envelope struct {
	Object json.RawMessage `json:"object"`
	Data   *struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func parsePaymentEvent(payload []byte) (*paymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	raw := env.Object
	if env.Data != nil && len(env.Data.Object) > 0 {
		raw = env.Data.Object
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("missing object")
	}

	var obj paymentObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if obj.Customer == "" {
		return nil, errors.New("missing customer")
	}
	if obj.Paid == nil {
		return nil, errors.New("missing paid")
	}
	return &paymentEvent{Customer: obj.Customer, Paid: *obj.Paid}, nil
}
