package rsge

import (
	"context"
	"errors"
	"time"
)

// ErrWaybillIDMissing is returned when a lifecycle call has no waybill id.
var ErrWaybillIDMissing = errors.New("rs.ge waybill id is missing")

// SaveWaybill registers a new waybill. Both the remote ID and the waybill
// number must be present in the response.
func (c *Client) SaveWaybill(ctx context.Context, creds Credentials, in CreateWaybillInput) (WaybillSaveResult, error) {
	if err := creds.Validate(); err != nil {
		return WaybillSaveResult{}, err
	}
	res, err := c.submit(ctx, methodSaveWaybill, creds, newSaveWaybillRequest(creds, in))
	if err != nil {
		return WaybillSaveResult{}, err
	}

	id, err := required(methodSaveWaybill, res, "ID")
	if err != nil {
		return WaybillSaveResult{}, err
	}
	number, err := required(methodSaveWaybill, res, "WAYBILL_NUMBER")
	if err != nil {
		return WaybillSaveResult{}, err
	}
	return WaybillSaveResult{WaybillID: id, WaybillNumber: number}, nil
}

// SendWaybill activates a saved waybill. A nil error confirms the
// transition.
func (c *Client) SendWaybill(ctx context.Context, creds Credentials, waybillID string) error {
	return c.waybillTransition(ctx, methodSendWaybill, creds, waybillID)
}

// DeleteWaybill deletes a waybill.
func (c *Client) DeleteWaybill(ctx context.Context, creds Credentials, waybillID string) error {
	return c.waybillTransition(ctx, methodDeleteWaybill, creds, waybillID)
}

// CloseWaybill completes an active waybill.
func (c *Client) CloseWaybill(ctx context.Context, creds Credentials, waybillID string) error {
	return c.waybillTransition(ctx, methodCloseWaybill, creds, waybillID)
}

func (c *Client) waybillTransition(ctx context.Context, method string, creds Credentials, waybillID string) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if waybillID == "" {
		return ErrWaybillIDMissing
	}
	_, err := c.invoke(ctx, method, waybillIDRequest{
		User:     creds.ServiceUser,
		Password: creds.ServicePassword,
		ID:       waybillID,
	})
	return err
}

// GetWaybills lists waybills of every type and status created between from
// and to. No waybills is an empty, non-nil slice.
func (c *Client) GetWaybills(ctx context.Context, creds Credentials, from, to time.Time) ([]WaybillListItem, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	res, err := c.invoke(ctx, methodGetWaybills, getWaybillsRequest{
		User:     creds.ServiceUser,
		Password: creds.ServicePassword,
		From:     formatDate(from),
		To:       formatDate(to),
		Type:     allWaybillTypes,
		Status:   allWaybillStatuses,
	})
	if err != nil {
		return nil, err
	}

	blocks := res.Blocks("WAYBILL")
	items := make([]WaybillListItem, 0, len(blocks))
	for _, b := range blocks {
		id, err := required(methodGetWaybills, b, "ID")
		if err != nil {
			return nil, err
		}
		items = append(items, WaybillListItem{
			ID:         id,
			Number:     b.Value("WAYBILL_NUMBER"),
			CreateDate: b.Value("CREATE_DATE"),
			BuyerTin:   b.Value("BUYER_TIN"),
			BuyerName:  b.Value("BUYER_NAME"),
			Status:     b.Value("STATUS"),
		})
	}
	return items, nil
}

// GetWaybillUnits returns the measurement units accepted in GOOD lines.
func (c *Client) GetWaybillUnits(ctx context.Context, creds Credentials) ([]WaybillUnit, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	res, err := c.invoke(ctx, methodGetWaybillUnits, credentialsRequest{
		User:     creds.ServiceUser,
		Password: creds.ServicePassword,
	})
	if err != nil {
		return nil, err
	}

	blocks := res.Blocks("UNIT")
	units := make([]WaybillUnit, 0, len(blocks))
	for _, b := range blocks {
		id, err := required(methodGetWaybillUnits, b, "ID")
		if err != nil {
			return nil, err
		}
		units = append(units, WaybillUnit{ID: id, Name: b.Value("NAME")})
	}
	return units, nil
}
