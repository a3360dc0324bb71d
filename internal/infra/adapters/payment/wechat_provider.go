// File: internal/infra/adapters/payment/wechat_provider.go
package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*WeChatProvider)(nil)

// WeChatProvider verifies WeChat Pay v2-style XML notifications. The payload
// is a flat XML document signed over its sorted fields with the merchant API
// key; the ack is an XML return_code document.
type WeChatProvider struct {
	appID  string
	mchID  string
	apiKey string
}

func NewWeChatProvider(appID, mchID, apiKey string) (*WeChatProvider, error) {
	if appID == "" || mchID == "" || apiKey == "" {
		return nil, errors.New("wechat provider: appid, mchid and api key are required")
	}
	return &WeChatProvider{appID: appID, mchID: mchID, apiKey: apiKey}, nil
}

func (p *WeChatProvider) Name() string { return "wechat" }

func (p *WeChatProvider) ParseNotification(r *http.Request) (*model.PaymentNotice, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}
	params, err := parseFlatXML(body)
	if err != nil {
		return nil, domain.ErrInvalidArgument
	}

	sign := params["sign"]
	if sign == "" || !hmac.Equal([]byte(sign), []byte(p.sign(params))) {
		return nil, domain.ErrInvalidSignature
	}
	if params["appid"] != p.appID || params["mch_id"] != p.mchID {
		return nil, domain.ErrInvalidSignature
	}
	if params["return_code"] != "SUCCESS" || params["result_code"] != "SUCCESS" {
		return nil, adapter.ErrNotPayment
	}

	orderNo := params["out_trade_no"]
	txnID := params["transaction_id"]
	totalFee, err := strconv.ParseInt(params["total_fee"], 10, 64)
	if err != nil || orderNo == "" || txnID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var paidAt time.Time
	if te := params["time_end"]; te != "" {
		paidAt, _ = time.ParseInLocation("20060102150405", te, time.Local)
	}

	return &model.PaymentNotice{
		Provider:      p.Name(),
		OrderNo:       orderNo,
		TransactionID: txnID,
		Amount:        totalFee, // total_fee is already in minor units
		PaidAt:        paidAt,
	}, nil
}

// sign builds the v2 signature: sorted k=v pairs joined by &, the API key
// appended as key=..., hashed and upper-cased. sign_type selects MD5 (default)
// or HMAC-SHA256.
func (p *WeChatProvider) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	b.WriteString("key=")
	b.WriteString(p.apiKey)

	if params["sign_type"] == "HMAC-SHA256" {
		mac := hmac.New(sha256.New, []byte(p.apiKey))
		mac.Write([]byte(b.String()))
		return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
	}
	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func (p *WeChatProvider) SuccessAck() (string, []byte) {
	return "application/xml", []byte("<xml><return_code><![CDATA[SUCCESS]]></return_code><return_msg><![CDATA[OK]]></return_msg></xml>")
}

func (p *WeChatProvider) FailAck(reason string) (string, []byte) {
	body := fmt.Sprintf("<xml><return_code><![CDATA[FAIL]]></return_code><return_msg><![CDATA[%s]]></return_msg></xml>", reason)
	return "application/xml", []byte(body)
}

// parseFlatXML reads a one-level XML document into a string map.
func parseFlatXML(data []byte) (map[string]string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	params := make(map[string]string)
	var current string
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
			}
		case xml.EndElement:
			depth--
			current = ""
		case xml.CharData:
			if depth == 2 && current != "" {
				params[current] += strings.TrimSpace(string(t))
			}
		}
	}
	if len(params) == 0 {
		return nil, errors.New("empty xml payload")
	}
	return params, nil
}
