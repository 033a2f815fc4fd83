package orders

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate delivery otp")
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func otpMatches(stored *string, given *string) bool {
	if stored == nil || given == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(*given)) == 1
}
