package account

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// newVerifyCode produces a 6-digit numeric verification code from a fresh
// random TOTP secret. The code itself is what gets stored and checked; the
// secret is discarded.
func newVerifyCode() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "RoastRadar",
		AccountName: "signup",
	})
	if err != nil {
		return "", err
	}
	return totp.GenerateCodeCustom(key.Secret(), time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
