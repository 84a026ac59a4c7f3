package opener

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openfill/openfill/pkg/order"
)

// SignerVerifier recovers the ECDSA signer of an intent's signing hash and
// compares it to the intent account.
type SignerVerifier struct{}

var _ Verifier = SignerVerifier{}

func (SignerVerifier) Verify(intent order.GaslessIntent, signature []byte) (bool, error) {
	if len(signature) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// Accept both the raw 0/1 recovery id and the transaction-style 27/28.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := intent.SigningHash()
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return false, fmt.Errorf("recover signer: %w", err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	return bytes.Equal(signer.Bytes(), intent.User.Bytes()), nil
}
