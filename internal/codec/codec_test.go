package codec

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeNumeric(t *testing.T) {
	cases := []struct {
		name    string
		span    string
		want    int64
		wantErr error
	}{
		{name: "zero padded", span: "000000000123", want: 123},
		{name: "non digits stripped", span: " 1.2-3 ", want: 123},
		{name: "blank", span: "     ", want: 0, wantErr: ErrEmpty},
		{name: "letters only", span: "ABC", want: 0, wantErr: ErrEmpty},
		{name: "overflow", span: "99999999999999999999", want: 0, wantErr: ErrOverflow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeNumeric(tc.span)
			if got != tc.want {
				t.Fatalf("DecodeNumeric(%q) = %d, want %d", tc.span, got, tc.want)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("DecodeNumeric(%q) err = %v, want %v", tc.span, err, tc.wantErr)
			}
		})
	}
}

func TestDecodeCurrencyCents(t *testing.T) {
	cases := []struct {
		name    string
		span    string
		want    string
		wantErr error
	}{
		{name: "cents", span: "000000000012345", want: "123.45"},
		{name: "small", span: "000000000000617", want: "6.17"},
		{name: "wide field", span: "999999999999999999999999", want: "9999999999999999999999.99"},
		{name: "blank", span: "", want: "0", wantErr: ErrEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeCurrencyCents(tc.span)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("DecodeCurrencyCents(%q) = %s, want %s", tc.span, got, tc.want)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("DecodeCurrencyCents(%q) err = %v, want %v", tc.span, err, tc.wantErr)
			}
		})
	}
}

func TestDecodeDate(t *testing.T) {
	got, err := DecodeDate("20250801")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Date{Year: 2025, Month: 8, Day: 1}) {
		t.Fatalf("got %v", got)
	}

	// Calendar validity is the caller's concern.
	got, err = DecodeDate("20251332")
	if err != nil {
		t.Fatalf("unexpected error for month 13: %v", err)
	}
	if got.Valid() {
		t.Fatalf("expected %v to be reported invalid", got)
	}

	for _, span := range []string{"2025081", "202508011", "2025-8-1", "        ", ""} {
		if _, err := DecodeDate(span); !errors.Is(err, ErrDateFormat) {
			t.Fatalf("DecodeDate(%q) err = %v, want ErrDateFormat", span, err)
		}
	}
}

func TestDecodeText(t *testing.T) {
	if got := DecodeText("  JOSE DA SILVA   \t"); got != "  JOSE DA SILVA" {
		t.Fatalf("got %q", got)
	}
	if got := DecodeText("A\x01B  "); got != "A\x01B" {
		t.Fatalf("non-printable characters must survive, got %q", got)
	}
}

func TestDateRoundTrip(t *testing.T) {
	for _, span := range []string{"20250801", "19991231", "20000229", "00010101", "20251399"} {
		d, err := DecodeDate(span)
		if err != nil {
			t.Fatalf("DecodeDate(%q): %v", span, err)
		}
		out, err := EncodeDate(d, DateWidth)
		if err != nil {
			t.Fatalf("EncodeDate(%v): %v", d, err)
		}
		if out != span {
			t.Fatalf("round trip %q -> %q", span, out)
		}
	}
}

func TestCurrencyRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 12345, 617, 999999999999999} {
		amount := decimal.New(cents, -2)
		span, err := EncodeCurrencyCents(amount, 15)
		if err != nil {
			t.Fatalf("EncodeCurrencyCents(%s): %v", amount, err)
		}
		if len(span) != 15 {
			t.Fatalf("span %q has width %d", span, len(span))
		}
		back, err := DecodeCurrencyCents(span)
		if err != nil {
			t.Fatalf("DecodeCurrencyCents(%q): %v", span, err)
		}
		if !back.Equal(amount) {
			t.Fatalf("round trip %s -> %s", amount, back)
		}
	}
}

func TestEncoders(t *testing.T) {
	if got, _ := EncodeNumeric(42, 6); got != "000042" {
		t.Fatalf("EncodeNumeric = %q", got)
	}
	if got, _ := EncodeText("ABC", 6); got != "ABC   " {
		t.Fatalf("EncodeText = %q", got)
	}
	if got, _ := EncodeText("AÇÃO", 5); got != "AÇÃO " {
		t.Fatalf("EncodeText counts characters, got %q", got)
	}

	cases := []struct {
		name string
		fn   func() (string, error)
		want error
	}{
		{name: "numeric too wide", fn: func() (string, error) { return EncodeNumeric(1234567, 6) }, want: ErrFieldTooWide},
		{name: "text too wide", fn: func() (string, error) { return EncodeText("ABCDEFG", 6) }, want: ErrFieldTooWide},
		{name: "currency too wide", fn: func() (string, error) { return EncodeCurrencyCents(decimal.New(100000, 0), 6) }, want: ErrFieldTooWide},
		{name: "date too narrow", fn: func() (string, error) { return EncodeDate(Date{2025, 8, 1}, 6) }, want: ErrFieldTooWide},
		{name: "negative", fn: func() (string, error) { return EncodeNumeric(-1, 6) }, want: ErrNegative},
		{name: "sub cent", fn: func() (string, error) { return EncodeCurrencyCents(decimal.RequireFromString("1.005"), 6) }, want: ErrFractionalCents},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fn(); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
