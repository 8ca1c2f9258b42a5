/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth verifies identity-provider tokens and turns their claims
// into the caller identity the service layer consumes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/tenant"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnexpectedSigning = errors.New("unexpected signing method")
	ErrMissingSecret     = errors.New("jwt secret is not configured")
)

// Claims is the claims bundle issued by the identity provider.
type Claims struct {
	MerchantID string `json:"merchant_id"`
	Role       string `json:"role"`
	Approved   bool   `json:"approved"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier from the auth configuration.
func NewVerifier(cfg *models.AuthConfig) (*Verifier, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}, nil
}

// Verify parses the token and returns the caller identity it asserts.
func (v *Verifier) Verify(tokenString string) (*tenant.Info, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSigning, t.Header["alg"])
		}

		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	info := &tenant.Info{
		UserID:     claims.Subject,
		MerchantID: claims.MerchantID,
		Role:       claims.Role,
		Approved:   claims.Approved,
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}

	return info, nil
}

// Issue signs a claims bundle; used by tests and local tooling, in
// production the identity provider issues tokens.
func (v *Verifier) Issue(info *tenant.Info, expiry time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		MerchantID: info.MerchantID,
		Role:       info.Role,
		Approved:   info.Approved,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   info.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(v.secret)
}
