// Package jwt implementa el codec de access tokens: emisión y verificación
// de JWT firmados con HMAC. La verificación es función pura del token y del
// reloj: no consulta el store, por lo que desactivar un usuario NO invalida
// tokens ya emitidos. Quien necesite revocación instantánea debe verificar
// además el estado del usuario (ver Security.RecheckUserStatus).
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// TokenType es el tipo de token emitido. Los refresh tokens son opacos y
// viven en el store; el codec solo firma tokens auto-contenidos.
type TokenType string

const TokenAccess TokenType = "ACCESS"

// Claims es el claim set de un access token.
type Claims struct {
	UserID    string
	Email     string
	Role      repository.Role
	Type      TokenType
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Errores de verificación. El caller los distingue con errors.Is.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrUnsupportedType  = errors.New("unsupported token type")
)

// Codec firma y verifica access tokens con una clave HMAC compartida.
type Codec struct {
	key []byte
	iss string
	ttl map[TokenType]time.Duration
}

// NewCodec crea un codec con la clave y TTLs configurados.
func NewCodec(signingKey []byte, issuer string, accessTTL time.Duration) (*Codec, error) {
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("jwt: empty signing key")
	}
	return &Codec{
		key: signingKey,
		iss: issuer,
		ttl: map[TokenType]time.Duration{
			TokenAccess: accessTTL,
		},
	}, nil
}

// Issue construye el claim set, firma y retorna el encoding compacto.
// Sin efectos más allá del cómputo.
func (c *Codec) Issue(userID, email string, role repository.Role, typ TokenType) (string, *Claims, error) {
	ttl, ok := c.ttl[typ]
	if !ok {
		return "", nil, ErrUnsupportedType
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss":  c.iss,
		"sub":  email,
		"uid":  userID,
		"role": string(role),
		"typ":  string(typ),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tk.SignedString(c.key)
	if err != nil {
		return "", nil, err
	}
	return signed, &Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		Type:      typ,
		Issuer:    c.iss,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Verify decodifica, verifica la firma y después el expiry. La firma se
// valida antes de leer cualquier claim: un token con firma inválida nunca
// llega a la inspección de claims.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwtv5.Parse(tokenStr,
		func(t *jwtv5.Token) (any, error) { return c.key, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(c.iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwtv5.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}

	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}
	typ, _ := mc["typ"].(string)
	if _, known := c.ttl[TokenType(typ)]; !known {
		return nil, ErrUnsupportedType
	}

	sub, _ := mc.GetSubject()
	uid, _ := mc["uid"].(string)
	roleStr, _ := mc["role"].(string)
	if sub == "" || uid == "" || !repository.ValidRole(repository.Role(roleStr)) {
		return nil, ErrMalformed
	}

	iat, _ := mc.GetIssuedAt()
	exp, _ := mc.GetExpirationTime()
	out := &Claims{
		UserID: uid,
		Email:  sub,
		Role:   repository.Role(roleStr),
		Type:   TokenType(typ),
		Issuer: c.iss,
	}
	if iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// ExpirySeconds expone el TTL configurado para reportar "expires_in".
func (c *Codec) ExpirySeconds(typ TokenType) int64 {
	return int64(c.ttl[typ].Seconds())
}
