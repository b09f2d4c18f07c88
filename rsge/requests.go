package rsge

// Remote method names.
const (
	methodSaveWaybill     = "save_waybill"
	methodSendWaybill     = "send_waybill"
	methodDeleteWaybill   = "del_waybill"
	methodCloseWaybill    = "close_waybill"
	methodGetWaybills     = "get_waybills"
	methodGetWaybillUnits = "get_waybill_units"
	methodSaveInvoice     = "save_invoice"
	methodGetInvoices     = "get_invoices"
	methodNameFromTin     = "get_name_from_tin"
	methodIsVATPayer      = "is_vat_payer"
)

// dateLayout is the timestamp format rs.ge expects for DT_F/DT_T.
const dateLayout = "2006-01-02T15:04:05"

// Filters sent with get_waybills: every type, every status.
const (
	allWaybillTypes    = 0
	allWaybillStatuses = -1
)

// credentialsRequest carries only su/sp; used by get_waybill_units.
type credentialsRequest struct {
	User     string `soap:"su"`
	Password string `soap:"sp,secret"`
}

type goodLine struct {
	ID       int     `soap:"ID"`
	Name     string  `soap:"W_NAME"`
	UnitID   int     `soap:"UNIT_ID"`
	Quantity float64 `soap:"QUANTITY"`
	Price    float64 `soap:"PRICE"`
	BarCode  string  `soap:"BAR_CODE"`
	AID      int     `soap:"A_ID"`
}

type saveWaybillRequest struct {
	User          string     `soap:"su"`
	Password      string     `soap:"sp,secret"`
	Type          int        `soap:"TYPE"`
	Status        int        `soap:"STATUS"`
	BuyerTin      string     `soap:"BUYER_TIN"`
	BuyerName     string     `soap:"BUYER_NAME"`
	StartAddress  string     `soap:"START_ADDRESS"`
	EndAddress    string     `soap:"END_ADDRESS"`
	DriverTin     string     `soap:"DRIVER_TIN"`
	CarNumber     string     `soap:"CAR_NUMBER"`
	TransportCost float64    `soap:"TRANSPORT_COAST"`
	Goods         []goodLine `soap:"GOODS_LIST>GOOD"`
}

func newSaveWaybillRequest(c Credentials, in CreateWaybillInput) saveWaybillRequest {
	goods := make([]goodLine, 0, len(in.Goods))
	for _, g := range in.Goods {
		goods = append(goods, goodLine{
			Name:     g.Name,
			UnitID:   g.UnitID,
			Quantity: g.Quantity,
			Price:    g.Price,
			BarCode:  g.BarCode,
		})
	}
	return saveWaybillRequest{
		User:          c.ServiceUser,
		Password:      c.ServicePassword,
		Type:          int(in.Type),
		Status:        int(in.Status),
		BuyerTin:      in.BuyerTin,
		BuyerName:     in.BuyerName,
		StartAddress:  in.StartAddress,
		EndAddress:    in.EndAddress,
		DriverTin:     in.DriverPin,
		CarNumber:     in.CarNumber,
		TransportCost: in.TransportationCost,
		Goods:         goods,
	}
}

// waybillIDRequest is shared by send_waybill, del_waybill and close_waybill.
type waybillIDRequest struct {
	User     string `soap:"su"`
	Password string `soap:"sp,secret"`
	ID       string `soap:"ID"`
}

type getWaybillsRequest struct {
	User     string `soap:"su"`
	Password string `soap:"sp,secret"`
	From     string `soap:"DT_F"`
	To       string `soap:"DT_T"`
	Type     int    `soap:"ITYPE"`
	Status   int    `soap:"ISTATUS"`
}

type getInvoicesRequest struct {
	User     string `soap:"su"`
	Password string `soap:"sp,secret"`
	From     string `soap:"DT_F"`
	To       string `soap:"DT_T"`
}

type invoiceLine struct {
	Name     string  `soap:"NAME"`
	Quantity float64 `soap:"QUANTITY"`
	Price    float64 `soap:"PRICE"`
	VATRate  float64 `soap:"VAT_RATE"`
	UnitID   int     `soap:"UNIT_ID"`
}

type saveInvoiceRequest struct {
	User      string        `soap:"su"`
	Password  string        `soap:"sp,secret"`
	BuyerTin  string        `soap:"BUYER_TIN"`
	BuyerName string        `soap:"BUYER_NAME"`
	Comment   string        `soap:"COMMENT"`
	Items     []invoiceLine `soap:"ITEMS_LIST>INVOICE_ITEM"`
}

func newSaveInvoiceRequest(c Credentials, in CreateInvoiceInput) saveInvoiceRequest {
	items := make([]invoiceLine, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, invoiceLine{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
			VATRate:  it.VATRate,
			UnitID:   it.UnitID,
		})
	}
	return saveInvoiceRequest{
		User:      c.ServiceUser,
		Password:  c.ServicePassword,
		BuyerTin:  in.BuyerTin,
		BuyerName: in.BuyerName,
		Comment:   in.Comment,
		Items:     items,
	}
}

type tinRequest struct {
	Tin string `soap:"tin"`
}
