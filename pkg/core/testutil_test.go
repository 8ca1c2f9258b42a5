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

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/payradar/pkg/db"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
)

// fakeDB is an in-memory db.Service used by the core tests.
type fakeDB struct {
	mu sync.Mutex

	locations    []*models.Location
	terminals    map[string]*models.Terminal
	health       map[string]*models.TerminalHealth
	sessions     map[string]*models.LiveSession
	currents     map[string]*models.CurrentTransaction
	activity     []models.ActivityLogEntry
	transactions []*models.Transaction
	staff        map[string]*models.StaffUser
	automations  map[string]*models.Automation
	wallets      map[string]*models.MerchantWallet
	commands     map[string]*models.CommandRecord
	samples      []db.ConfirmationSample
	dashboard    models.DashboardStats

	saveCurrentErr error
	heartbeatErr   error

	heartbeatWrites int
	nextID          int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		terminals:   make(map[string]*models.Terminal),
		health:      make(map[string]*models.TerminalHealth),
		sessions:    make(map[string]*models.LiveSession),
		currents:    make(map[string]*models.CurrentTransaction),
		staff:       make(map[string]*models.StaffUser),
		automations: make(map[string]*models.Automation),
		wallets:     make(map[string]*models.MerchantWallet),
		commands:    make(map[string]*models.CommandRecord),
	}
}

func (f *fakeDB) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeDB) addTerminal(t *models.Terminal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *t
	f.terminals[t.ID] = &copied
}

func (f *fakeDB) ListLocations(_ context.Context, merchantID string) ([]*models.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Location

	for _, loc := range f.locations {
		if loc.MerchantID == merchantID {
			copied := *loc
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (f *fakeDB) ListTerminals(_ context.Context, merchantID string) ([]*models.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Terminal

	for _, t := range f.terminals {
		if t.MerchantID == merchantID {
			copied := *t
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (f *fakeDB) GetTerminal(_ context.Context, merchantID, terminalID string) (*models.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.terminals[terminalID]
	if !ok || t.MerchantID != merchantID {
		return nil, db.ErrTerminalNotFound
	}

	copied := *t

	return &copied, nil
}

func (f *fakeDB) SnapshotTerminals(_ context.Context) ([]*models.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*models.Terminal, 0, len(f.terminals))

	for _, t := range f.terminals {
		copied := *t
		out = append(out, &copied)
	}

	return out, nil
}

func (f *fakeDB) GetTerminalHealth(_ context.Context, terminalID string) (*models.TerminalHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, ok := f.health[terminalID]
	if !ok {
		return nil, nil
	}

	copied := *h

	return &copied, nil
}

func (f *fakeDB) GetLiveSession(_ context.Context, terminalID string) (*models.LiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[terminalID]
	if !ok {
		return nil, nil
	}

	copied := *s

	return &copied, nil
}

func (f *fakeDB) GetTerminalWalletMapping(_ context.Context, _ string) (string, map[string]string, error) {
	return "", nil, nil
}

func (f *fakeDB) ApplyHeartbeat(_ context.Context, terminalID string, health *models.TerminalHealth, session *models.LiveSession, lastUser string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.heartbeatErr != nil {
		return f.heartbeatErr
	}

	f.heartbeatWrites++

	h := *health
	f.health[terminalID] = &h

	s := *session
	f.sessions[terminalID] = &s

	if t, ok := f.terminals[terminalID]; ok {
		t.LastCheckIn = health.LastHeartbeat

		if lastUser != "" {
			t.LastUser = lastUser
		}

		if !t.Disabled {
			t.Status = models.TerminalOnline
		}
	}

	return nil
}

func (f *fakeDB) MarkTerminalsOffline(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string

	for id, t := range f.terminals {
		h, ok := f.health[id]
		if !ok || t.Status != models.TerminalOnline {
			continue
		}

		if h.LastHeartbeat.Before(cutoff) {
			t.Status = models.TerminalOffline
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (f *fakeDB) SetTerminalDisabled(_ context.Context, merchantID, terminalID string, disabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.terminals[terminalID]
	if !ok || t.MerchantID != merchantID {
		return db.ErrTerminalNotFound
	}

	t.Disabled = disabled
	if disabled {
		t.Status = models.TerminalOffline
	}

	return nil
}

func (f *fakeDB) GetCurrentTransaction(_ context.Context, terminalID string) (*models.CurrentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, ok := f.currents[terminalID]
	if !ok {
		return models.NewIdleTransaction(), nil
	}

	copied := *cur

	return &copied, nil
}

func (f *fakeDB) SaveCurrentTransaction(_ context.Context, terminalID string, tx *models.CurrentTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveCurrentErr != nil {
		return f.saveCurrentErr
	}

	copied := *tx
	f.currents[terminalID] = &copied

	return nil
}

func (f *fakeDB) AddActivity(_ context.Context, entry *models.ActivityLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *entry
	if copied.ID == "" {
		copied.ID = f.id("act")
	}

	f.activity = append(f.activity, copied)

	return nil
}

func (f *fakeDB) ListActivity(_ context.Context, merchantID, terminalID string, limit int) ([]models.ActivityLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.ActivityLogEntry

	for i := len(f.activity) - 1; i >= 0; i-- {
		entry := f.activity[i]
		if entry.MerchantID != merchantID || entry.TerminalID != terminalID {
			continue
		}

		out = append(out, entry)

		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (f *fakeDB) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *tx
	if copied.ID == "" {
		copied.ID = f.id("tx")
	}

	f.transactions = append(f.transactions, &copied)

	return nil
}

func (f *fakeDB) ListTransactions(_ context.Context, merchantID string, page, pageSize int) (*models.TransactionPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []models.Transaction

	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].MerchantID == merchantID {
			matched = append(matched, *f.transactions[i])
		}
	}

	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 {
		pageSize = 25
	}

	return &models.TransactionPage{
		Transactions: matched,
		TotalCount:   len(matched),
		Page:         page,
		TotalPages:   (len(matched) + pageSize - 1) / pageSize,
	}, nil
}

func (f *fakeDB) GetTransactionByHash(_ context.Context, merchantID, txHash string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.transactions) - 1; i >= 0; i-- {
		tx := f.transactions[i]
		if tx.MerchantID == merchantID && tx.TxHash == txHash {
			copied := *tx
			return &copied, nil
		}
	}

	return nil, db.ErrTransactionNotFound
}

func (f *fakeDB) MarkTransactionRefunded(_ context.Context, merchantID, txHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.transactions) - 1; i >= 0; i-- {
		tx := f.transactions[i]
		if tx.MerchantID == merchantID && tx.TxHash == txHash && tx.Status == models.TransactionCompleted {
			tx.Status = models.TransactionRefunded
			return nil
		}
	}

	return db.ErrTransactionNotFound
}

func (f *fakeDB) ConfirmationSamples(_ context.Context, _ int) ([]db.ConfirmationSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]db.ConfirmationSample, len(f.samples))
	copy(out, f.samples)

	return out, nil
}

func (f *fakeDB) DashboardStats(_ context.Context, _ string) (*models.DashboardStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := f.dashboard

	return &stats, nil
}

func (f *fakeDB) ListStaff(_ context.Context, merchantID string) ([]*models.StaffUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.StaffUser

	for _, u := range f.staff {
		if u.MerchantID == merchantID {
			copied := *u
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (f *fakeDB) GetStaff(_ context.Context, merchantID, staffID string) (*models.StaffUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.staff[staffID]
	if !ok || u.MerchantID != merchantID {
		return nil, db.ErrStaffNotFound
	}

	copied := *u

	return &copied, nil
}

func (f *fakeDB) CreateStaff(_ context.Context, user *models.StaffUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.ID == "" {
		user.ID = f.id("staff")
	}

	copied := *user
	f.staff[user.ID] = &copied

	return nil
}

func (f *fakeDB) UpdateStaff(_ context.Context, user *models.StaffUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.staff[user.ID]; !ok {
		return db.ErrStaffNotFound
	}

	copied := *user
	f.staff[user.ID] = &copied

	return nil
}

func (f *fakeDB) DeleteStaff(_ context.Context, merchantID, staffID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.staff[staffID]
	if !ok || u.MerchantID != merchantID {
		return db.ErrStaffNotFound
	}

	delete(f.staff, staffID)

	return nil
}

func (f *fakeDB) ListAutomations(_ context.Context, merchantID string) ([]*models.Automation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Automation

	for _, a := range f.automations {
		if a.MerchantID == merchantID {
			copied := *a
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (f *fakeDB) CreateAutomation(_ context.Context, automation *models.Automation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if automation.ID == "" {
		automation.ID = f.id("auto")
	}

	copied := *automation
	f.automations[automation.ID] = &copied

	return nil
}

func (f *fakeDB) SetAutomationEnabled(_ context.Context, merchantID, automationID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.automations[automationID]
	if !ok || a.MerchantID != merchantID {
		return db.ErrAutomationNotFound
	}

	a.Enabled = enabled

	return nil
}

func (f *fakeDB) DeleteAutomation(_ context.Context, merchantID, automationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.automations[automationID]
	if !ok || a.MerchantID != merchantID {
		return db.ErrAutomationNotFound
	}

	delete(f.automations, automationID)

	return nil
}

func (f *fakeDB) GetMerchantWallet(_ context.Context, merchantID string) (*models.MerchantWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[merchantID]
	if !ok {
		return nil, db.ErrWalletNotFound
	}

	copied := *w
	copied.Addresses = append([]models.WalletAddress(nil), w.Addresses...)

	return &copied, nil
}

func (f *fakeDB) CreateMerchantWallet(_ context.Context, wallet *models.MerchantWallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if wallet.WalletID == "" {
		wallet.WalletID = f.id("wallet")
	}

	copied := *wallet
	f.wallets[wallet.MerchantID] = &copied

	return nil
}

func (f *fakeDB) AddWalletAddress(_ context.Context, merchantID string, addr *models.WalletAddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[merchantID]
	if !ok {
		return db.ErrWalletNotFound
	}

	if addr.AddressID == "" {
		addr.AddressID = f.id("addr")
	}

	addr.WalletID = w.WalletID
	addr.IsVerified = false

	w.Addresses = append(w.Addresses, *addr)

	return nil
}

func (f *fakeDB) VerifyWalletAddress(_ context.Context, merchantID, addressID, signature string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[merchantID]
	if !ok {
		return db.ErrWalletNotFound
	}

	for i := range w.Addresses {
		if w.Addresses[i].AddressID == addressID {
			w.Addresses[i].IsVerified = true
			w.Addresses[i].VerificationSignature = signature

			return nil
		}
	}

	return db.ErrAddressNotFound
}

func (f *fakeDB) RecordCommand(_ context.Context, rec *models.CommandRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.commands[rec.IdempotencyKey]; ok {
		return false, nil
	}

	copied := *rec
	if copied.ID == "" {
		copied.ID = f.id("cmd")
	}

	f.commands[rec.IdempotencyKey] = &copied

	return true, nil
}

func (f *fakeDB) Close() {}

func (f *fakeDB) activityByAction(action string) []models.ActivityLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.ActivityLogEntry

	for _, entry := range f.activity {
		if entry.Action == action {
			out = append(out, entry)
		}
	}

	return out
}

var testClock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *models.CoreServiceConfig {
	cfg := &models.CoreServiceConfig{
		ListenAddr: ":0",
		Database:   &models.Database{},
		Auth:       &models.AuthConfig{JWTSecret: "test-secret"},
	}
	_ = cfg.Validate()

	return cfg
}

func newTestServer(fake *fakeDB) *Server {
	return NewServer(testConfig(), fake, logger.NewTestLogger(),
		WithServerClock(func() time.Time { return testClock }))
}

func loadTestServer(t interface{ Fatalf(string, ...interface{}) }, fake *fakeDB) *Server {
	s := newTestServer(fake)

	if err := s.Registry.Load(context.Background(), fake); err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}

	return s
}
