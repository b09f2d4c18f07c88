package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	gowsdl "github.com/hooklift/gowsdl/soap"

	"github.com/tetrisge/rsge/xmlcodec"
)

const (
	// XmlNsSoapEnv is the SOAP 1.1 envelope namespace.
	XmlNsSoapEnv = gowsdl.XmlNsSoapEnv
	XmlNsXSI     = "http://www.w3.org/2001/XMLSchema-instance"
	XmlNsXSD     = "http://www.w3.org/2001/XMLSchema"

	// DefaultNamespace is the service namespace used by rs.ge for method
	// elements and SOAPAction values.
	DefaultNamespace = "http://tempuri.org/"

	SOAPMIMEType = "text/xml; charset=utf-8"

	xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
)

type SOAPEnvelope struct {
	XMLName  xml.Name `xml:"soap:Envelope"`
	XmlNSXsi string   `xml:"xmlns:xsi,attr"`
	XmlNSXsd string   `xml:"xmlns:xsd,attr"`
	XmlNS    string   `xml:"xmlns:soap,attr"`

	Body SOAPBody
}

type SOAPBody struct {
	XMLName xml.Name `xml:"soap:Body"`

	Content MethodElement
}

// MethodElement is the body element named after the remote method. Its
// parameters are pre-rendered and inlined verbatim.
type MethodElement struct {
	XMLName xml.Name
	XmlNS   string `xml:"xmlns,attr,omitempty"`

	Params string `xml:",innerxml"`
}

func newMethodElement(namespace, method, params string) MethodElement {
	return MethodElement{
		XMLName: xml.Name{Local: method},
		XmlNS:   namespace,
		Params:  params,
	}
}

// marshalEnvelope renders a complete SOAP 1.1 request document.
func marshalEnvelope(namespace, method, params string) ([]byte, error) {
	envelope := SOAPEnvelope{
		XmlNSXsi: XmlNsXSI,
		XmlNSXsd: XmlNsXSD,
		XmlNS:    XmlNsSoapEnv,
	}
	envelope.Body.Content = newMethodElement(namespace, method, params)

	buf, err := xml.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlDeclaration), buf...), nil
}

// SOAPEnvelopeResponse is namespace-agnostic so that any envelope prefix
// decodes.
type SOAPEnvelopeResponse struct {
	XMLName xml.Name         `xml:"Envelope"`
	Body    SOAPBodyResponse `xml:"Body"`
}

type SOAPBodyResponse struct {
	Fault *gowsdl.SOAPFault

	Content string `xml:",innerxml"`
}

// decodeResponse classifies a 2xx response body. A fault is checked before
// the result wrapper is looked at, so a fault always wins over an embedded
// error_code.
func decodeResponse(method string, body []byte) (xmlcodec.Fragment, error) {
	var envelope SOAPEnvelopeResponse
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&envelope); err != nil {
		return xmlcodec.Fragment{}, &ParseError{Method: method, Reason: "cannot decode envelope", Err: err}
	}

	if fault := envelope.Body.Fault; fault != nil {
		return xmlcodec.Fragment{}, newFaultError(method, fault.Code, fault.String)
	}

	content, err := xmlcodec.ParseFragment(envelope.Body.Content)
	if err != nil {
		return xmlcodec.Fragment{}, &ParseError{Method: method, Reason: "cannot parse body", Err: err}
	}
	// Only a Fault directly inside Body is a fault; result data may carry
	// elements of the same name.
	if fault, ok := content.Child("Fault"); ok {
		return xmlcodec.Fragment{}, newFaultError(method, fault.Value("faultcode"), fault.Value("faultstring"))
	}

	resultTag := method + "Result"
	result, ok := content.Find(resultTag)
	if !ok {
		return xmlcodec.Fragment{}, &ParseError{Method: method, Element: resultTag, Reason: "missing result element"}
	}

	if code := result.Value("error_code"); code != "" && !isZeroCode(code) {
		msg := result.Value("error_text")
		if msg == "" {
			msg = fmt.Sprintf("error code %s", code)
		}
		return xmlcodec.Fragment{}, &ApplicationError{Method: method, Code: code, Message: msg}
	}

	return result, nil
}

func newFaultError(method, code, message string) *SOAPFaultError {
	if message == "" {
		message = "SOAP Fault"
	}
	return &SOAPFaultError{Method: method, Code: code, Message: message}
}

func isZeroCode(code string) bool {
	n, err := strconv.Atoi(code)
	return err == nil && n == 0
}
