package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/fashionstore-backend/pkg/razorpay"
)

// GatewayOrderRequest asks the gateway to open a payable order.
type GatewayOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is the gateway's handle for a payable order.
type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Raw         json.RawMessage
}

// Gateway opens payable orders with the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	KeyID() string
}

// SignatureVerifier checks a checkout callback. Only the boolean is consumed.
type SignatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway adapts the Razorpay REST client to Gateway.
func NewRazorpayGateway(client *razorpay.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("razorpay client required")
	}
	return &razorpayGateway{client: client}, nil
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	order, err := g.client.CreateOrder(ctx, razorpay.CreateOrderParams{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &GatewayOrder{
		ID:          order.ID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Raw:         order.Raw,
	}, nil
}

func (g *razorpayGateway) KeyID() string {
	return g.client.KeyID()
}
