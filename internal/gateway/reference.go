package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docta-care/service-payment/internal/domain"
	"github.com/google/uuid"
)

// The merchant transaction reference is the correlation token echoed back by
// the gateway in webhook payloads. Canonical encoding: "<sessionID>-<unix-ms>".
// The timestamp suffix keeps references unique across repeated payment
// attempts for the same session.

// NewMerchantRef encodes a session id into a merchant transaction reference.
func NewMerchantRef(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s-%d", sessionID, time.Now().UnixMilli())
}

// ParseMerchantRef recovers the session id from a merchant transaction
// reference. Anything not matching the canonical encoding is a validation
// error; the webhook path rejects such payloads without touching the store.
func ParseMerchantRef(ref string) (uuid.UUID, error) {
	idx := strings.LastIndexByte(ref, '-')
	if idx <= 0 {
		return uuid.Nil, domain.NewValidationError("malformed merchant transaction reference: " + ref)
	}

	if _, err := strconv.ParseInt(ref[idx+1:], 10, 64); err != nil {
		return uuid.Nil, domain.NewValidationError("malformed merchant transaction reference: " + ref)
	}

	id, err := uuid.Parse(ref[:idx])
	if err != nil {
		return uuid.Nil, domain.NewValidationError("malformed merchant transaction reference: " + ref)
	}
	return id, nil
}
