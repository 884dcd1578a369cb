package models

// JWTClaims are the claims the verifier extracts from an access token.
type JWTClaims struct {
	Sub   string `json:"sub"` // provider-side user id
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}
