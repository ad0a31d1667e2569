package auctionapi

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestReceiptCOSE_EncodeURLSafe(t *testing.T) {
	receipt := ReceiptCOSE([]byte{0xd2, 0x84, 0xfb, 0xff, 0xfe, 0x3e, 0x3f})

	encoded := receipt.EncodeURLSafe()
	check.False(t, strings.ContainsAny(encoded.String(), "+/="))

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, receipt, decoded)
}

func TestReceiptCOSE_EncodeBase64(t *testing.T) {
	receipt := ReceiptCOSE([]byte{0xd2, 0x84, 0xfb, 0xff, 0xfe})

	encoded := receipt.EncodeBase64()
	check.Equal(t, ReceiptCOSEBase64("0oT7//4="), encoded)

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, receipt, decoded)
}

func TestReceiptCOSE_CompressGzip(t *testing.T) {
	receipt := ReceiptCOSE([]byte(strings.Repeat("receipt-payload-", 32)))

	compressed, err := receipt.CompressGzip()
	check.Nil(t, err)
	check.True(t, len(compressed) < len(receipt))
	check.False(t, strings.ContainsAny(compressed.String(), "+/="))

	decompressed, err := compressed.Decompress()
	check.Nil(t, err)
	check.Equal(t, receipt, decompressed)
}

func TestReceiptCOSEGzip_DecompressInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input ReceiptCOSEGzip
	}{
		{"not base64", "!!!"},
		{"not gzip", ReceiptCOSEGzip("bm90LWd6aXA")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.input.Decompress()
			check.NotNil(t, err)
		})
	}
}

func TestAttestationCOSEBase64_Decode(t *testing.T) {
	tests := []struct {
		name      string
		input     AttestationCOSEBase64
		expected  AttestationCOSE
		shouldErr bool
	}{
		{"standard padded", "aGVsbG8=", AttestationCOSE("hello"), false},
		{"standard unpadded multiple of four", "aGVsbG9v", AttestationCOSE("helloo"), false},
		{"url safe unpadded", "aGVsbG8", AttestationCOSE("hello"), false},
		{"url safe alphabet", "-_8", AttestationCOSE([]byte{0xfb, 0xff}), false},
		{"invalid", "***", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := tt.input.Decode()
			if tt.shouldErr {
				check.NotNil(t, err)
				return
			}
			check.Nil(t, err)
			check.Equal(t, tt.expected, decoded)
		})
	}
}
