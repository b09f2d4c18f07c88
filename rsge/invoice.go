package rsge

import (
	"context"
	"strconv"
	"time"

	"github.com/tetrisge/rsge/soap"
	"github.com/tetrisge/rsge/xmlcodec"
)

// SaveInvoice registers a VAT invoice. Each item's VAT rate is sent as
// supplied.
func (c *Client) SaveInvoice(ctx context.Context, creds Credentials, in CreateInvoiceInput) (InvoiceSaveResult, error) {
	if err := creds.Validate(); err != nil {
		return InvoiceSaveResult{}, err
	}
	res, err := c.submit(ctx, methodSaveInvoice, creds, newSaveInvoiceRequest(creds, in))
	if err != nil {
		return InvoiceSaveResult{}, err
	}

	id, err := required(methodSaveInvoice, res, "ID")
	if err != nil {
		return InvoiceSaveResult{}, err
	}
	number, err := required(methodSaveInvoice, res, "INVOICE_NUMBER")
	if err != nil {
		return InvoiceSaveResult{}, err
	}
	return InvoiceSaveResult{InvoiceID: id, InvoiceNumber: number}, nil
}

// GetInvoices lists invoices created between from and to.
func (c *Client) GetInvoices(ctx context.Context, creds Credentials, from, to time.Time) ([]InvoiceListItem, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	res, err := c.invoke(ctx, methodGetInvoices, getInvoicesRequest{
		User:     creds.ServiceUser,
		Password: creds.ServicePassword,
		From:     formatDate(from),
		To:       formatDate(to),
	})
	if err != nil {
		return nil, err
	}

	blocks := res.Blocks("INVOICE")
	items := make([]InvoiceListItem, 0, len(blocks))
	for _, b := range blocks {
		item, err := invoiceFromBlock(b)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func invoiceFromBlock(b xmlcodec.Fragment) (InvoiceListItem, error) {
	id, err := required(methodGetInvoices, b, "ID")
	if err != nil {
		return InvoiceListItem{}, err
	}
	total, err := amount(b, "TOTAL_AMOUNT")
	if err != nil {
		return InvoiceListItem{}, err
	}
	vat, err := amount(b, "VAT_AMOUNT")
	if err != nil {
		return InvoiceListItem{}, err
	}
	return InvoiceListItem{
		ID:          id,
		Number:      b.Value("INVOICE_NUMBER"),
		CreateDate:  b.Value("CREATE_DATE"),
		BuyerTin:    b.Value("BUYER_TIN"),
		BuyerName:   b.Value("BUYER_NAME"),
		TotalAmount: total,
		VATAmount:   vat,
		Status:      b.Value("STATUS"),
	}, nil
}

// amount parses a monetary field. An absent field is zero; a malformed one
// is a ParseError.
func amount(b xmlcodec.Fragment, tag string) (float64, error) {
	raw := b.Value(tag)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &soap.ParseError{Method: methodGetInvoices, Element: tag, Reason: "malformed amount", Err: err}
	}
	return v, nil
}
