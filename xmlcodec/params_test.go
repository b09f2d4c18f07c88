package xmlcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsRenderInInsertionOrder(t *testing.T) {
	p := NewParams().
		Add("z", "1").
		Add("a", "x & y").
		AddRaw("LIST", "<ITEM>raw</ITEM>")

	assert.Equal(t, []string{"z", "a", "LIST"}, p.keys())
	assert.Equal(t, "<z>1</z><a>x &amp; y</a><LIST><ITEM>raw</ITEM></LIST>", p.String())
}

func TestParamsRedacted(t *testing.T) {
	p := NewParams().Add("su", "user").AddSecret("sp", "p@ss<word>")

	assert.Equal(t, "<su>user</su><sp>p@ss&lt;word&gt;</sp>", p.String())
	assert.Equal(t, "<su>user</su><sp>***</sp>", p.Redacted())
}

func TestNilParams(t *testing.T) {
	var p *Params
	assert.Equal(t, "", p.String())
	assert.Equal(t, "", p.Redacted())
	assert.Nil(t, p.keys())
}

type testGood struct {
	Name     string  `soap:"W_NAME"`
	Quantity float64 `soap:"QUANTITY"`
	Price    float64 `soap:"PRICE"`
}

type testRequest struct {
	User     string     `soap:"su"`
	Password string     `soap:"sp,secret"`
	Type     int        `soap:"TYPE"`
	Active   bool       `soap:"ACTIVE"`
	Note     string     `soap:"-"`
	internal string
	Goods    []testGood `soap:"GOODS_LIST>GOOD"`
}

func TestEncode(t *testing.T) {
	req := testRequest{
		User:     "svc",
		Password: "secret",
		Type:     2,
		Active:   true,
		Note:     "ignored",
		Goods: []testGood{
			{Name: "Bread & Butter", Quantity: 2, Price: 10},
			{Name: "Milk", Quantity: 1.5, Price: 2.35},
		},
	}

	p, err := Encode(&req)
	require.NoError(t, err)

	assert.Equal(t, []string{"su", "sp", "TYPE", "ACTIVE", "GOODS_LIST"}, p.keys())
	assert.Equal(t,
		"<su>svc</su><sp>secret</sp><TYPE>2</TYPE><ACTIVE>true</ACTIVE>"+
			"<GOODS_LIST>"+
			"<GOOD><W_NAME>Bread &amp; Butter</W_NAME><QUANTITY>2</QUANTITY><PRICE>10</PRICE></GOOD>"+
			"<GOOD><W_NAME>Milk</W_NAME><QUANTITY>1.5</QUANTITY><PRICE>2.35</PRICE></GOOD>"+
			"</GOODS_LIST>",
		p.String())
	assert.Contains(t, p.Redacted(), "<sp>***</sp>")
}

func TestEncodeEmptyList(t *testing.T) {
	p, err := Encode(testRequest{})
	require.NoError(t, err)
	assert.Contains(t, p.String(), "<GOODS_LIST></GOODS_LIST>")
}

func TestEncodeRejectsUnsupportedInput(t *testing.T) {
	_, err := Encode("not a struct")
	assert.Error(t, err)

	var nilReq *testRequest
	_, err = Encode(nilReq)
	assert.Error(t, err)

	_, err = Encode(struct {
		Values map[string]string `soap:"VALUES"`
	}{})
	assert.Error(t, err)
}
