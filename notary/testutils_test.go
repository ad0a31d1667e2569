package notary

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/substrate"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
	calls      int
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	m.calls++
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

func mustDecodeHex(t *testing.T, hexStr string) []byte {
	t.Helper()
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		panic(fmt.Sprintf("invalid hex string: %s", hexStr))
	}
	return bytes
}

// CreateMockEnclave creates a mock enclave handle returning an unsigned
// attestation document in the Nitro 4-element layout.
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1234567890),
				"pcrs": map[uint64][]byte{
					0: mustDecodeHex(t, "3b4cef27e672fdbcc808960a88ddfe7329dd2e367b6850c9a8d910315f0b47e4224d6db361b75e010c87691d86ca9c57"),
					1: mustDecodeHex(t, "4b4d5b3661b3efc12920900c80e126e4ce783c522de6c02a2a5bf7af3a2b9327b86776f188e4be1c1c404a129dbda493"),
					2: mustDecodeHex(t, "2bdd28c1d85bb3872da3617a29a6bfeb50c65750c995f92e7dac6b5f2c4c72e0f9976bdee62a0b25864d10dffb535e11"),
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"public_key":  []byte("test-public-key-data"),
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}

			nestedBytes, err := cbor.Marshal(nestedDoc)
			if err != nil {
				return nil, err
			}

			// [header, metadata, nested_doc, signature]
			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			})
		},
	}
}

type fixture struct {
	auction *core.Auction
	clock   *substrate.Clock
	wallets *substrate.Wallets
	notary  *Notary
	keys    *KeyManager
	enclave *MockEnclaveHandle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keys, err := NewKeyManager()
	assert.NoError(t, err)

	f := &fixture{
		clock:   substrate.NewClock(testStart),
		wallets: substrate.NewWallets(),
		keys:    keys,
		enclave: CreateMockEnclave(t),
	}
	f.notary, err = New(keys, WithAttester(f.enclave), WithClock(f.clock.Now))
	assert.NoError(t, err)

	f.auction, err = core.NewWithMinutes("owner", 60, "painting",
		core.WithClock(f.clock.Now),
		core.WithTransferer(f.wallets),
		core.WithEventSink(f.notary))
	assert.NoError(t, err)
	return f
}

// runToFinalization places two bids, finalizes, and refunds the loser.
func (f *fixture) runToFinalization(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	assert.NoError(t, f.auction.PlaceBid(ctx, "alice", 100))
	assert.NoError(t, f.auction.PlaceBid(ctx, "bob", 150))
	f.clock.Set(f.auction.EndTime())
	_, _, err := f.auction.Finalize(ctx, "owner")
	assert.NoError(t, err)
	_, err = f.auction.RefundDeposit(ctx, "alice")
	assert.NoError(t, err)
}
