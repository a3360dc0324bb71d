package payment

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"design-market/internal/domain"
	"design-market/internal/domain/ports/adapter"
)

func newTestAlipay(t *testing.T) *AlipayProvider {
	t.Helper()
	p, err := NewAlipayProvider("2021000100", "testsecret")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func alipayParams() map[string]string {
	return map[string]string{
		"app_id":       "2021000100",
		"trade_status": "TRADE_SUCCESS",
		"out_trade_no": "20250601120000000042",
		"trade_no":     "2025060122001400001",
		"total_amount": "25.00",
		"gmt_payment":  "2025-06-01 12:03:01",
	}
}

func alipayRequest(params map[string]string) *strings.Reader {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	return strings.NewReader(form.Encode())
}

func TestAlipayParseNotification(t *testing.T) {
	p := newTestAlipay(t)

	t.Run("valid notification", func(t *testing.T) {
		params := alipayParams()
		params["sign"] = p.sign(params)
		r := httptest.NewRequest("POST", "/payment/notify/alipay", alipayRequest(params))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		n, err := p.ParseNotification(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n.Provider != "alipay" {
			t.Errorf("provider = %q", n.Provider)
		}
		if n.Amount != 2500 {
			t.Errorf("amount = %d fen, want 2500", n.Amount)
		}
		if n.OrderNo != "20250601120000000042" || n.TransactionID != "2025060122001400001" {
			t.Errorf("wrong identifiers: %+v", n)
		}
	})

	t.Run("trade finished also counts as paid", func(t *testing.T) {
		params := alipayParams()
		params["trade_status"] = "TRADE_FINISHED"
		params["sign"] = p.sign(params)
		r := httptest.NewRequest("POST", "/payment/notify/alipay", alipayRequest(params))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if _, err := p.ParseNotification(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("tampered amount fails signature", func(t *testing.T) {
		params := alipayParams()
		params["sign"] = p.sign(params)
		params["total_amount"] = "0.01"
		r := httptest.NewRequest("POST", "/payment/notify/alipay", alipayRequest(params))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if _, err := p.ParseNotification(r); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("wait-for-payment status is not a payment", func(t *testing.T) {
		params := alipayParams()
		params["trade_status"] = "WAIT_BUYER_PAY"
		params["sign"] = p.sign(params)
		r := httptest.NewRequest("POST", "/payment/notify/alipay", alipayRequest(params))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if _, err := p.ParseNotification(r); !errors.Is(err, adapter.ErrNotPayment) {
			t.Errorf("expected ErrNotPayment, got %v", err)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/payment/notify/alipay", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if _, err := p.ParseNotification(r); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAlipayAcks(t *testing.T) {
	p := newTestAlipay(t)
	if _, body := p.SuccessAck(); string(body) != "success" {
		t.Errorf("success ack = %q", body)
	}
	if _, body := p.FailAck("whatever"); string(body) != "fail" {
		t.Errorf("fail ack = %q", body)
	}
}

func TestYuanToMinorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"29.00", 2900, false},
		{"29", 2900, false},
		{"29.5", 2950, false},
		{"0.01", 1, false},
		{"1234.56", 123456, false},
		{" 29.00 ", 2900, false},
		{"", 0, true},
		{"29.005", 0, true},
		{"abc", 0, true},
		{"29.x", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := yuanToMinorUnits(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}
