// Package session owns all mutable invoicing state for the device: the
// scanned item list, stone rate table, extra charges, operator settings
// and the design-number image map. Every mutation is mirrored to the
// store; a failed write is logged and otherwise ignored, leaving the
// in-memory state authoritative for the rest of the session.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rkgold/invoicer/internal/models"
	"github.com/rkgold/invoicer/internal/qr"
	"github.com/rkgold/invoicer/internal/storage"
	"github.com/rkgold/invoicer/internal/totals"
)

// Session is safe for use from concurrent connection handlers; operations
// are applied strictly in the order they acquire the lock.
type Session struct {
	mu    sync.Mutex
	store storage.Store
	log   *slog.Logger

	items    []models.Item
	rates    models.StoneRates
	charges  []models.OtherCharge
	images   map[string]string
	settings models.Settings
	form     models.InvoiceForm
}

// Snapshot is a full copy of the session state plus derived aggregates,
// as sent to the UI after every mutation.
type Snapshot struct {
	Items        []models.Item          `json:"items"`
	Rates        models.StoneRates      `json:"rates"`
	OtherCharges []models.OtherCharge   `json:"other_charges"`
	Settings     models.Settings        `json:"settings"`
	Form         models.InvoiceForm     `json:"form"`
	Totals       models.MassTotals      `json:"totals"`
	Breakdown    totals.ChargeBreakdown `json:"breakdown"`
}

// ItemEdit carries the operator-editable item fields. Nil means unchanged.
type ItemEdit struct {
	Melting        *float64 `json:"melting"`
	BigStoneWeight *float64 `json:"big_stone_weight"`
	XLStoneWeight  *float64 `json:"xl_stone_weight"`
}

// ChargeEdit carries the editable fields of one extra-charge line.
type ChargeEdit struct {
	Name   *string  `json:"name"`
	Amount *float64 `json:"amount"`
}

// New creates a session restored from the store. Missing keys fall back
// to defaults; a corrupt value is logged and replaced by its default.
func New(ctx context.Context, store storage.Store, log *slog.Logger) *Session {
	s := &Session{
		store:    store,
		log:      log,
		rates:    models.DefaultStoneRates(),
		images:   map[string]string{},
		settings: models.Settings{DefaultMelting: models.DefaultMelting},
	}
	s.restore(ctx)
	s.ensureTrailingCharge()
	return s
}

func (s *Session) restore(ctx context.Context) {
	s.load(ctx, storage.KeyItems, &s.items)
	s.load(ctx, storage.KeyRates, &s.rates)
	s.load(ctx, storage.KeySettings, &s.settings)
	s.load(ctx, storage.KeyImageMap, &s.images)
	s.load(ctx, storage.KeyInvoiceForm, &s.form)
	s.loadCharges(ctx)

	if s.settings.DefaultMelting <= 0 {
		s.settings.DefaultMelting = models.DefaultMelting
	}
	if s.images == nil {
		s.images = map[string]string{}
	}
}

func (s *Session) load(ctx context.Context, key string, dst any) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("store read failed", "key", key, "err", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("stored value unreadable, using defaults", "key", key, "err", err)
	}
}

// loadCharges tolerates the legacy format where the whole value was a
// single bare number; it becomes one named line.
func (s *Session) loadCharges(ctx context.Context) {
	raw, ok, err := s.store.Get(ctx, storage.KeyOtherCharges)
	if err != nil {
		s.log.Warn("store read failed", "key", storage.KeyOtherCharges, "err", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, &s.charges); err == nil {
		return
	}
	var legacy float64
	if err := json.Unmarshal(raw, &legacy); err == nil {
		s.charges = []models.OtherCharge{{
			ID:     uuid.New().String(),
			Name:   "Other Charges",
			Amount: legacy,
		}}
		return
	}
	s.log.Warn("stored value unreadable, using defaults", "key", storage.KeyOtherCharges)
}

// AddScan parses a raw tag payload and appends the resulting item. A
// known image for the design number is attached to the new item. Every
// scan appends; duplicate tags are allowed by design.
func (s *Session) AddScan(ctx context.Context, payload string) (*models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := qr.Parse(payload, s.settings.DefaultMelting)
	if !ok {
		return nil, false
	}
	if img, ok := s.images[item.DesignNo]; ok {
		item.ImageRef = img
	}
	s.items = append(s.items, *item)
	s.persist(ctx, storage.KeyItems, s.items)
	return item, true
}

// UpdateItem applies an operator edit and recomputes the derived fine
// weight. It returns false when no item has the given id.
func (s *Session) UpdateItem(ctx context.Context, id string, edit ItemEdit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if edit.Melting != nil {
			s.items[i].Melting = *edit.Melting
		}
		if edit.BigStoneWeight != nil {
			s.items[i].BigStoneWeight = *edit.BigStoneWeight
		}
		if edit.XLStoneWeight != nil {
			s.items[i].XLStoneWeight = *edit.XLStoneWeight
		}
		s.items[i].FineWeight = qr.FineWeight(s.items[i].NetWeight, s.items[i].Melting)
		s.persist(ctx, storage.KeyItems, s.items)
		return true
	}
	return false
}

// DeleteItem removes the item with the given id.
func (s *Session) DeleteItem(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist(ctx, storage.KeyItems, s.items)
			return true
		}
	}
	return false
}

// ClearItems drops every scanned item. Settings, rates, charges and the
// image map survive.
func (s *Session) ClearItems(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx, storage.KeyItems, s.items)
}

// SetRates replaces the whole rate table.
func (s *Session) SetRates(ctx context.Context, rates models.StoneRates) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates = rates
	s.persist(ctx, storage.KeyRates, s.rates)
}

// SetDefaultMelting sets the purity applied to future scans. Existing
// items keep their melting until edited.
func (s *Session) SetDefaultMelting(ctx context.Context, melting float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.DefaultMelting = melting
	s.persist(ctx, storage.KeySettings, s.settings)
}

// UpdateCharge edits one extra-charge line. When the edit gives the last
// line a non-empty name, a fresh empty line is appended so the operator
// always has a slot to type the next charge into.
func (s *Session) UpdateCharge(ctx context.Context, id string, edit ChargeEdit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.charges {
		if s.charges[i].ID != id {
			continue
		}
		if edit.Name != nil {
			s.charges[i].Name = *edit.Name
		}
		if edit.Amount != nil {
			s.charges[i].Amount = *edit.Amount
		}
		s.ensureTrailingCharge()
		s.persist(ctx, storage.KeyOtherCharges, s.charges)
		return true
	}
	return false
}

// RemoveCharge deletes an extra-charge line.
func (s *Session) RemoveCharge(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.charges {
		if s.charges[i].ID == id {
			s.charges = append(s.charges[:i], s.charges[i+1:]...)
			s.ensureTrailingCharge()
			s.persist(ctx, storage.KeyOtherCharges, s.charges)
			return true
		}
	}
	return false
}

// ensureTrailingCharge keeps the list invariant: at least one line, and
// an empty-named line at the end. Callers must hold s.mu.
func (s *Session) ensureTrailingCharge() {
	if n := len(s.charges); n > 0 && strings.TrimSpace(s.charges[n-1].Name) == "" {
		return
	}
	s.charges = append(s.charges, models.OtherCharge{ID: uuid.New().String()})
}

// SetImage associates an image with a design number and stamps it onto
// every current item sharing that design. The association outlives the
// items and is reused when the design number is scanned again.
func (s *Session) SetImage(ctx context.Context, designNo, imageBase64 string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images[designNo] = imageBase64
	for i := range s.items {
		if s.items[i].DesignNo == designNo {
			s.items[i].ImageRef = imageBase64
		}
	}
	s.persist(ctx, storage.KeyImageMap, s.images)
	s.persist(ctx, storage.KeyItems, s.items)
}

// RemoveImage drops a design number's image and clears it from items.
func (s *Session) RemoveImage(ctx context.Context, designNo string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.images, designNo)
	for i := range s.items {
		if s.items[i].DesignNo == designNo {
			s.items[i].ImageRef = ""
		}
	}
	s.persist(ctx, storage.KeyImageMap, s.images)
	s.persist(ctx, storage.KeyItems, s.items)
}

// SetInvoiceForm remembers the party/slip pair across sessions.
func (s *Session) SetInvoiceForm(ctx context.Context, form models.InvoiceForm) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = form
	s.persist(ctx, storage.KeyInvoiceForm, s.form)
}

// State returns a copy of the current state with derived aggregates.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.Item, len(s.items))
	copy(items, s.items)
	charges := make([]models.OtherCharge, len(s.charges))
	copy(charges, s.charges)

	t := totals.Sum(items)
	return Snapshot{
		Items:        items,
		Rates:        s.rates,
		OtherCharges: charges,
		Settings:     s.settings,
		Form:         s.form,
		Totals:       t,
		Breakdown:    totals.Breakdown(t, s.rates, charges),
	}
}

// InvoiceRequest assembles the renderer input from the current state.
func (s *Session) InvoiceRequest(partyName, slipNumber string) models.InvoiceRequest {
	st := s.State()
	return models.InvoiceRequest{
		PartyName:    partyName,
		SlipNumber:   slipNumber,
		Items:        st.Items,
		Rates:        st.Rates,
		OtherCharges: st.OtherCharges,
	}
}

func (s *Session) persist(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal for store failed", "key", key, "err", err)
		return
	}
	if err := s.store.Put(ctx, key, raw); err != nil {
		s.log.Warn("store write failed, keeping in-memory state", "key", key, "err", err)
	}
}
