package upbit

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"

	"github.com/golang-jwt/jwt/v5"

	"coin-trading-bot/internal/id"
)

// authToken builds the Upbit JWT bearer token. Requests with parameters
// carry a SHA512 hash of the urlencoded query string; the nonce must be
// unique per request.
func authToken(accessKey, secretKey string, params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": accessKey,
		"nonce":      id.New(),
	}

	if len(params) > 0 {
		hash := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
