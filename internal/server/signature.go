package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var warnMissingSecretOnce sync.Once

// verifyWebhookSignature checks an X-Hub-Signature-256 header against
// body. An empty secret disables verification.
func verifyWebhookSignature(body []byte, headerSignature string, secret string, logger *logrus.Logger) error {
	if strings.TrimSpace(secret) == "" {
		warnMissingSecretOnce.Do(func() {
			logger.Warn("webhook signature verification disabled: no webhook secret configured")
		})
		return nil
	}

	if headerSignature == "" {
		return errors.New("missing X-Hub-Signature-256 header")
	}

	const prefix = "sha256="
	if !strings.HasPrefix(headerSignature, prefix) {
		return errors.New("invalid signature prefix")
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(headerSignature, prefix))
	if err != nil {
		return errors.New("invalid signature encoding")
	}

	if !hmac.Equal(signBody(body, secret), provided) {
		return errors.New("signature mismatch")
	}
	return nil
}

func signBody(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
