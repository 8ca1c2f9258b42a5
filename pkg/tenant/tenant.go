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

// Package tenant provides merchant-scoped caller identity.
//
// Every service call takes an explicit *tenant.Info rather than reaching
// into ambient session state. The identity provider issues the claims
// bundle; the auth middleware verifies it and attaches the resulting Info
// to the request context.
//
// This package supports:
//   - Role checks for command authorization
//   - Merchant row-level scoping (defense in depth alongside server-side RLS)
//   - Context-based caller propagation
//   - NATS subject prefixing for tenant isolation
package tenant

import (
	"context"
	"errors"
	"fmt"
)

// ctxKey is the type for context keys in this package.
type ctxKey string

// callerCtxKey is the context key for storing caller info.
const callerCtxKey ctxKey = "caller"

// Roles issued by the identity provider.
const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
	RoleStaff    = "staff"
)

var (
	// ErrNoCallerInContext indicates no caller info was found in the context.
	ErrNoCallerInContext = errors.New("no caller info in context")

	// ErrNotApproved indicates the caller's account is pending review.
	ErrNotApproved = errors.New("caller is not approved")

	// ErrMerchantRequired indicates the claims bundle carried no merchant id.
	ErrMerchantRequired = errors.New("caller has no merchant id")

	// ErrUnknownRole indicates a role outside the closed set.
	ErrUnknownRole = errors.New("unknown role")
)

// Info is the verified caller identity attached to every request.
type Info struct {
	// UserID is the identity-provider subject.
	UserID string `json:"user_id"`

	// MerchantID scopes every read and write issued on behalf of this
	// caller.
	MerchantID string `json:"merchant_id"`

	// Role is one of admin, merchant, staff.
	Role string `json:"role"`

	// Approved gates all access; unapproved callers see nothing.
	Approved bool `json:"approved"`
}

// String returns a human-readable representation of the caller.
func (i Info) String() string {
	return fmt.Sprintf("%s/%s/%s", i.MerchantID, i.UserID, i.Role)
}

// Validate rejects callers that must not reach any service method.
func (i Info) Validate() error {
	if !i.Approved {
		return ErrNotApproved
	}

	if i.MerchantID == "" {
		return ErrMerchantRequired
	}

	switch i.Role {
	case RoleAdmin, RoleMerchant, RoleStaff:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, i.Role)
	}
}

// IsAdmin reports whether the caller holds the admin role.
func (i Info) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanRefund reports whether the caller may issue money-moving commands.
// Staff operate terminals but cannot reverse settled payments.
func (i Info) CanRefund() bool {
	return i.Role == RoleAdmin || i.Role == RoleMerchant
}

// OwnsMerchant reports whether the caller belongs to the given merchant.
func (i Info) OwnsMerchant(merchantID string) bool {
	return merchantID != "" && i.MerchantID == merchantID
}

// PrefixSubject returns a NATS subject scoped to the caller's merchant.
// Example: "events.terminal.payment" -> "acme-corp.events.terminal.payment"
func (i Info) PrefixSubject(subject string) string {
	if i.MerchantID == "" {
		return subject
	}

	return i.MerchantID + "." + subject
}

// WithContext returns a new context with the caller info attached.
func WithContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, callerCtxKey, info)
}

// FromContext extracts caller info from a context.
// Returns ErrNoCallerInContext if no caller info is present.
func FromContext(ctx context.Context) (*Info, error) {
	info, ok := ctx.Value(callerCtxKey).(*Info)
	if !ok || info == nil {
		return nil, ErrNoCallerInContext
	}

	return info, nil
}

// MustFromContext extracts caller info from a context or panics.
// Use only when caller presence is guaranteed (after middleware validation).
func MustFromContext(ctx context.Context) *Info {
	info, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}

	return info
}

// MerchantFromContext extracts just the merchant id from a context.
// Returns empty string if no caller info is present.
func MerchantFromContext(ctx context.Context) string {
	info, err := FromContext(ctx)
	if err != nil {
		return ""
	}

	return info.MerchantID
}
