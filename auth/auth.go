// Package auth resolves the caller's wallet identity from an HTTP request,
// either a signed bearer token or the plain wallet header used by clients
// that sign transactions themselves.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

const (
	walletHeader = "X-Wallet-Address"
	walletClaim  = "walletAddress"
)

var (
	ErrUnauthenticated = errors.New("no wallet identity on request")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrInvalidWallet   = errors.New("invalid wallet address")
)

// Authenticator verifies bearer tokens and falls back to the wallet header.
type Authenticator struct {
	secret []byte
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// WalletFromRequest extracts and validates the caller's wallet address.
func (a *Authenticator) WalletFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		wallet, err := a.walletFromToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return "", err
		}
		return wallet, nil
	}
	if wallet := types.NormalizeWallet(r.Header.Get(walletHeader)); wallet != "" {
		if !types.ValidWallet(wallet) {
			return "", fmt.Errorf("%w: %s", ErrInvalidWallet, wallet)
		}
		return wallet, nil
	}
	return "", ErrUnauthenticated
}

func (a *Authenticator) walletFromToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	wallet, _ := claims[walletClaim].(string)
	wallet = types.NormalizeWallet(wallet)
	if wallet == "" {
		return "", fmt.Errorf("%w: missing %s claim", ErrInvalidToken, walletClaim)
	}
	if !types.ValidWallet(wallet) {
		return "", fmt.Errorf("%w: %s", ErrInvalidWallet, wallet)
	}
	return wallet, nil
}

// IssueToken signs a bearer token carrying the wallet identity.
func (a *Authenticator) IssueToken(wallet string, ttl time.Duration) (string, error) {
	wallet = types.NormalizeWallet(wallet)
	if !types.ValidWallet(wallet) {
		return "", fmt.Errorf("%w: %s", ErrInvalidWallet, wallet)
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		walletClaim: wallet,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}
