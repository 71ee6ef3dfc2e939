package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/cityinfo-api/internal/model"
)

// TokenOptions are the signing parameters shared by issuer and validator.
type TokenOptions struct {
	Key      []byte // HMAC key, already base64-decoded
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims is the payload of an access token. sub carries the user ID; the
// profile claims feed authorization policies such as the city check.
type Claims struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	City       string `json:"city"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into a numeric ID.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// AccessToken represents a signed JWT along with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs an HS256 token for user, issued at now and expiring
// after opt.TTL.
func NewAccessToken(opt TokenOptions, user model.AuthenticatedUser, now time.Time) (AccessToken, error) {
	if len(opt.Key) == 0 {
		return AccessToken{}, errors.New("empty signing key")
	}
	now = now.UTC().Truncate(time.Second)
	exp := now.Add(opt.TTL)
	claims := Claims{
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
		City:       user.City,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(user.UserID, 10),
			Issuer:    opt.Issuer,
			Audience:  jwt.ClaimStrings{opt.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opt.Key)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm, issuer, audience and
// expiry, and returns the claims of a valid token.
func ParseAccessToken(raw string, opt TokenOptions) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			// Reject anything that is not HMAC before handing out the key.
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return opt.Key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(opt.Issuer),
		jwt.WithAudience(opt.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
