// File: internal/infra/adapters/payment/alipay_provider.go
package payment

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"design-market/internal/domain"
	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*AlipayProvider)(nil)

// AlipayProvider verifies alipay-style form-encoded notifications signed with
// an MD5 digest over the sorted parameters plus a shared secret. The ack is
// the literal body "success" or "fail"; anything but "success" makes the
// provider redeliver.
type AlipayProvider struct {
	appID  string
	secret string
}

func NewAlipayProvider(appID, secret string) (*AlipayProvider, error) {
	if appID == "" || secret == "" {
		return nil, errors.New("alipay provider: app id and secret are required")
	}
	return &AlipayProvider{appID: appID, secret: secret}, nil
}

func (p *AlipayProvider) Name() string { return "alipay" }

func (p *AlipayProvider) ParseNotification(r *http.Request) (*model.PaymentNotice, error) {
	if err := r.ParseForm(); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}
	if len(params) == 0 {
		return nil, domain.ErrInvalidArgument
	}

	sign := params["sign"]
	if sign == "" || !hmac.Equal([]byte(sign), []byte(p.sign(params))) {
		return nil, domain.ErrInvalidSignature
	}
	if params["app_id"] != p.appID {
		return nil, domain.ErrInvalidSignature
	}
	switch params["trade_status"] {
	case "TRADE_SUCCESS", "TRADE_FINISHED":
	default:
		return nil, adapter.ErrNotPayment
	}

	orderNo := params["out_trade_no"]
	txnID := params["trade_no"]
	amount, err := yuanToMinorUnits(params["total_amount"])
	if err != nil || orderNo == "" || txnID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var paidAt time.Time
	if gp := params["gmt_payment"]; gp != "" {
		paidAt, _ = time.ParseInLocation("2006-01-02 15:04:05", gp, time.Local)
	}

	return &model.PaymentNotice{
		Provider:      p.Name(),
		OrderNo:       orderNo,
		TransactionID: txnID,
		Amount:        amount,
		PaidAt:        paidAt,
	}, nil
}

func (p *AlipayProvider) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := md5.Sum([]byte(strings.Join(pairs, "&") + p.secret))
	return hex.EncodeToString(sum[:])
}

func (p *AlipayProvider) SuccessAck() (string, []byte) {
	return "text/plain", []byte("success")
}

func (p *AlipayProvider) FailAck(string) (string, []byte) {
	return "text/plain", []byte("fail")
}

// yuanToMinorUnits parses a decimal yuan string ("29.00") into fen without
// going through floats.
func yuanToMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	whole, frac := s, "0"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, errors.New("amount precision beyond fen")
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return w*100 + f, nil
}
