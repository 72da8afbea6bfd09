package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	// signingKeys is ordered newest first: tokens sign with the head
	// and validate against each entry, so rotated-out keys keep
	// validating outstanding tokens until they expire.
	signingKeys [][]byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	logger      Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	keys := make([][]byte, 0, len(cfg.GetSigningKeys()))
	for _, k := range cfg.GetSigningKeys() {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return &TokenServiceImpl{
		signingKeys: keys,
		accessTTL:   cfg.GetAccessTokenTTL(),
		refreshTTL:  cfg.GetRefreshTokenTTL(),
		issuer:      cfg.GetIssuer(),
		audience:    cfg.GetAudience(),
		logger:      logger,
	}
}

// IssueAccess creates a short lived access JWT for the identity
func (ts *TokenServiceImpl) IssueAccess(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenKindAccess, ts.accessTTL)
}

// IssueRefresh creates a refresh JWT, only usable to mint new access tokens
func (ts *TokenServiceImpl) IssueRefresh(identity Identity) (string, time.Time, error) {
	return ts.issue(identity, TokenKindRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) issue(identity Identity, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, errors.New("identity is required", errors.CategoryBadInput)
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserRole:  identity.Role(),
		TokenKind: kind,
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// SignClaims signs arbitrary JWT claims using the newest signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if len(ts.signingKeys) == 0 {
		return "", errors.New("no signing keys configured", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKeys[0])
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses a token string, verifies signature and expiry against
// wall clock time (no skew tolerance), and enforces the expected kind.
func (ts *TokenServiceImpl) Validate(tokenString string, expected TokenKind) (AuthClaims, error) {
	if len(ts.signingKeys) == 0 {
		return nil, errors.New("no signing keys configured", errors.CategoryInternal)
	}

	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	var token *jwt.Token
	var err error

	for _, key := range ts.signingKeys {
		signingKey := key
		token, err = jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return signingKey, nil
		}, parserOptions...)

		if err == nil {
			break
		}

		// expiry is terminal, trying older keys cannot fix it
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
	}

	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenKind != expected {
		ts.logger.Warn("TokenService validate kind mismatch", "expected", expected, "got", claims.TokenKind)
		return nil, ErrTokenKindMismatch
	}

	return claims, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
