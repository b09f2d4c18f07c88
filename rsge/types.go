package rsge

import (
	"errors"
	"strings"
)

// ErrCredentialsMissing is returned before any network call when the
// service user or password is empty.
var ErrCredentialsMissing = errors.New("rs.ge service credentials are missing")

// Credentials are the rs.ge service user (su) and service password (sp).
// They are supplied per call and never stored by this package.
type Credentials struct {
	ServiceUser     string
	ServicePassword string
}

// Validate checks that both fields are set.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ServiceUser) == "" || c.ServicePassword == "" {
		return ErrCredentialsMissing
	}
	return nil
}

// WaybillType classifies a waybill.
type WaybillType int

const (
	WaybillInternal WaybillType = 1
	WaybillExport   WaybillType = 2
	WaybillImport   WaybillType = 3
	WaybillReturn   WaybillType = 4
)

// WaybillStatus is the status requested when saving a waybill and the
// lifecycle state reported by get_waybills.
type WaybillStatus int

const (
	StatusDeleted   WaybillStatus = -1
	StatusSaved     WaybillStatus = 0
	StatusActive    WaybillStatus = 1
	StatusCompleted WaybillStatus = 2
)

var statusLabels = map[string]string{
	"-1": "deleted",
	"0":  "saved",
	"1":  "active",
	"2":  "completed",
}

// StatusLabel maps a remote status string to a readable label.
// Unknown values yield "unknown".
func StatusLabel(status string) string {
	if l, ok := statusLabels[strings.TrimSpace(status)]; ok {
		return l
	}
	return "unknown"
}

// WaybillGood is one line of a waybill.
type WaybillGood struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	UnitID   int     `json:"unitId"`
	BarCode  string  `json:"barCode,omitempty"`
}

// CreateWaybillInput describes a waybill to save. Business rules such as
// VAT correctness are the caller's responsibility.
type CreateWaybillInput struct {
	Type               WaybillType   `json:"type"`
	Status             WaybillStatus `json:"status"`
	BuyerTin           string        `json:"buyerTin"`
	BuyerName          string        `json:"buyerName"`
	StartAddress       string        `json:"startAddress"`
	EndAddress         string        `json:"endAddress"`
	TransportationCost float64       `json:"transportationCost,omitempty"`
	DriverPin          string        `json:"driverPin,omitempty"`
	CarNumber          string        `json:"carNumber,omitempty"`
	Goods              []WaybillGood `json:"goods"`
}

type WaybillSaveResult struct {
	WaybillID     string `json:"waybillId"`
	WaybillNumber string `json:"waybillNumber"`
}

// WaybillListItem is one record returned by get_waybills. Status is the
// remote status string, unmodified.
type WaybillListItem struct {
	ID         string `json:"id"`
	Number     string `json:"number"`
	CreateDate string `json:"createDate"`
	BuyerTin   string `json:"buyerTin"`
	BuyerName  string `json:"buyerName"`
	Status     string `json:"status"`
}

type WaybillUnit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InvoiceItem is one line of a VAT invoice. VATRate is sent as given;
// nothing is recomputed.
type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	VATRate  float64 `json:"vatRate"`
	UnitID   int     `json:"unitId"`
}

type CreateInvoiceInput struct {
	BuyerTin  string        `json:"buyerTin"`
	BuyerName string        `json:"buyerName"`
	Comment   string        `json:"comment,omitempty"`
	Items     []InvoiceItem `json:"items"`
}

type InvoiceSaveResult struct {
	InvoiceID     string `json:"invoiceId"`
	InvoiceNumber string `json:"invoiceNumber"`
}

type InvoiceListItem struct {
	ID          string  `json:"id"`
	Number      string  `json:"number"`
	CreateDate  string  `json:"createDate"`
	BuyerTin    string  `json:"buyerTin"`
	BuyerName   string  `json:"buyerName"`
	TotalAmount float64 `json:"totalAmount"`
	VATAmount   float64 `json:"vatAmount"`
	Status      string  `json:"status"`
}

type TinLookupResult struct {
	Tin        string `json:"tin"`
	Name       string `json:"name"`
	IsVATPayer bool   `json:"isVatPayer"`
}
