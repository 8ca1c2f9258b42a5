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

package tenant

import (
	"context"
	"errors"
	"testing"
)

func TestInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    Info
		wantErr error
	}{
		{
			name: "approved merchant admin",
			info: Info{UserID: "u1", MerchantID: "m1", Role: RoleAdmin, Approved: true},
		},
		{
			name: "approved staff",
			info: Info{UserID: "u2", MerchantID: "m1", Role: RoleStaff, Approved: true},
		},
		{
			name:    "pending review",
			info:    Info{UserID: "u1", MerchantID: "m1", Role: RoleAdmin},
			wantErr: ErrNotApproved,
		},
		{
			name:    "missing merchant",
			info:    Info{UserID: "u1", Role: RoleAdmin, Approved: true},
			wantErr: ErrMerchantRequired,
		},
		{
			name:    "role outside closed set",
			info:    Info{UserID: "u1", MerchantID: "m1", Role: "superuser", Approved: true},
			wantErr: ErrUnknownRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}

				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanRefund(t *testing.T) {
	if (Info{Role: RoleStaff}).CanRefund() {
		t.Error("staff must not refund")
	}

	if !(Info{Role: RoleMerchant}).CanRefund() {
		t.Error("merchant owners may refund")
	}

	if !(Info{Role: RoleAdmin}).CanRefund() {
		t.Error("admins may refund")
	}
}

func TestContextRoundTrip(t *testing.T) {
	info := &Info{UserID: "u1", MerchantID: "m1", Role: RoleMerchant, Approved: true}

	ctx := WithContext(context.Background(), info)

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext() error = %v", err)
	}

	if got.MerchantID != "m1" || got.UserID != "u1" {
		t.Errorf("FromContext() = %+v, want %+v", got, info)
	}

	if MerchantFromContext(ctx) != "m1" {
		t.Errorf("MerchantFromContext() = %q, want m1", MerchantFromContext(ctx))
	}
}

func TestFromContextMissing(t *testing.T) {
	_, err := FromContext(context.Background())
	if !errors.Is(err, ErrNoCallerInContext) {
		t.Errorf("FromContext() = %v, want ErrNoCallerInContext", err)
	}

	if MerchantFromContext(context.Background()) != "" {
		t.Error("MerchantFromContext() on empty context should be empty")
	}
}

func TestPrefixSubject(t *testing.T) {
	info := Info{MerchantID: "acme-corp"}

	got := info.PrefixSubject("events.terminal.payment")
	want := "acme-corp.events.terminal.payment"

	if got != want {
		t.Errorf("PrefixSubject() = %q, want %q", got, want)
	}

	empty := Info{}
	if empty.PrefixSubject("events.terminal.payment") != "events.terminal.payment" {
		t.Error("PrefixSubject() without merchant should pass through")
	}
}
