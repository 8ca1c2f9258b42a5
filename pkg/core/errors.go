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

package core

import "errors"

var (
	// ErrTerminalNotFound indicates the terminal does not exist or belongs
	// to another merchant.
	ErrTerminalNotFound = errors.New("terminal not found")

	// ErrTransactionNotFound indicates no transaction matches the given hash.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidState indicates a command was issued against a transaction
	// state that does not permit it.
	ErrInvalidState = errors.New("command not valid in current payment state")

	// ErrUnauthorized indicates the caller's role does not permit the
	// operation.
	ErrUnauthorized = errors.New("caller is not authorized for this operation")

	// ErrReasonRequired indicates a refund was issued without a reason.
	ErrReasonRequired = errors.New("refund reason is required")

	// ErrUpstreamFailure indicates a dependency (database, command channel)
	// failed while handling the operation.
	ErrUpstreamFailure = errors.New("upstream dependency failure")
)
