package auctionapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// ReceiptCOSE is a tagged COSE_Sign1 message whose payload is a CBOR EventPayload.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is ReceiptCOSE in standard or URL-safe base64.
type ReceiptCOSEBase64 string

// ReceiptCOSEGzip is ReceiptCOSE gzipped and encoded as unpadded URL-safe base64,
// compact enough for query strings.
type ReceiptCOSEGzip string

// AttestationCOSE is the raw COSE_Sign1 attestation document returned by an enclave.
type AttestationCOSE []byte

// AttestationCOSEBase64 is AttestationCOSE in base64.
type AttestationCOSEBase64 string

// EncodeBase64 encodes with standard base64.
func (c ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

// EncodeURLSafe encodes with unpadded URL-safe base64.
func (c ReceiptCOSE) EncodeURLSafe() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip gzips the receipt and encodes it URL-safe.
func (c ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	compressed, err := gzipBytes(c)
	if err != nil {
		return "", err
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(compressed)), nil
}

// Decode accepts either standard or URL-safe base64.
func (b ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	data, err := decodeAnyBase64(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (b ReceiptCOSEBase64) String() string {
	return string(b)
}

// Decompress reverses CompressGzip.
func (g ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(g))
	if err != nil {
		return nil, fmt.Errorf("decode compressed receipt: %w", err)
	}
	data, err := gunzipBytes(compressed)
	if err != nil {
		return nil, err
	}
	return ReceiptCOSE(data), nil
}

func (g ReceiptCOSEGzip) String() string {
	return string(g)
}

// EncodeBase64 encodes with standard base64.
func (a AttestationCOSE) EncodeBase64() AttestationCOSEBase64 {
	return AttestationCOSEBase64(base64.StdEncoding.EncodeToString(a))
}

// Decode accepts either standard or URL-safe base64.
func (b AttestationCOSEBase64) Decode() (AttestationCOSE, error) {
	data, err := decodeAnyBase64(string(b))
	if err != nil {
		return nil, fmt.Errorf("decode attestation: %w", err)
	}
	return AttestationCOSE(data), nil
}

func decodeAnyBase64(s string) ([]byte, error) {
	if strings.ContainsAny(s, "-_") || !strings.HasSuffix(s, "=") && len(s)%4 != 0 {
		return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return base64.StdEncoding.DecodeString(s)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return out, nil
}
