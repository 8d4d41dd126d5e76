package omisecli

import (
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// Gateway is the slice of the Omise API the payment service uses.
type Gateway interface {
	CreateCharge(req *operations.CreateCharge) (*omise.Charge, error)
	RetrieveCharge(id string) (*omise.Charge, error)
	RetrieveEvent(id string) (*omise.Event, error)
}

type Client struct {
	omc *omise.Client
}

func NewOmiseClient(pub, sec string) (*Client, error) {
	c, err := omise.NewClient(pub, sec)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return &Client{omc: c}, nil
}

func (c *Client) CreateCharge(req *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := c.omc.Do(ch, req); err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Client) RetrieveCharge(id string) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := c.omc.Do(ch, &operations.RetrieveCharge{ChargeID: id}); err != nil {
		return nil, err
	}
	return ch, nil
}

// RetrieveEvent fetches an event by id. Webhook bodies are not trusted; the
// event is always re-read from Omise.
func (c *Client) RetrieveEvent(id string) (*omise.Event, error) {
	ev := &omise.Event{}
	if err := c.omc.Do(ev, &operations.RetrieveEvent{EventID: id}); err != nil {
		return nil, err
	}
	return ev, nil
}
