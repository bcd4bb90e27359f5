// Package rtc mints the signed access credentials consumed by the external
// media provider. Issuance is pure: no I/O beyond the signing computation.
package rtc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// DefaultTTL is the credential validity window when none is configured.
const DefaultTTL = 3600 * time.Second

// Claims is the credential payload the media provider verifies: which channel,
// which participant, and whether they may publish.
type Claims struct {
	jwt.RegisteredClaims
	Channel string `json:"channel"`
	UID     string `json:"uid"`
	Role    string `json:"role"`
}

// Issuer signs media access credentials with the provider app secret.
type Issuer struct {
	AppID  string
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// NewIssuer creates an issuer. AppID/Secret may be empty; issuance then fails
// closed with a config_error so callers can tell "misconfigured" from "retry".
func NewIssuer(appID, secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{AppID: appID, Secret: secret, TTL: ttl, Now: time.Now}
}

// Issue mints a credential scoped to {channel, uid, role, expiry}. Reissue is
// always safe: no two credentials are related and nothing is persisted.
func (i *Issuer) Issue(channel, uid string, role model.Role) (string, error) {
	if i.AppID == "" {
		return "", errs.Config("RTC_APP_ID is not configured")
	}
	if i.Secret == "" {
		return "", errs.Config("RTC_APP_CERTIFICATE is not configured")
	}
	now := i.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.AppID,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
		Channel: channel,
		UID:     uid,
		Role:    string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.Secret))
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "sign media credential", err)
	}
	return signed, nil
}
