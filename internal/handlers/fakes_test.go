// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// fakes_test.go provides in-memory repositories and request helpers shared
// by the handler tests. Store behaviour against PostgreSQL is covered in
// the store package.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketsite/internal/cart"
	"marketsite/internal/content"
	"marketsite/internal/middleware"
	"marketsite/internal/models"
	"marketsite/internal/pricing"
	"marketsite/internal/session"
	"marketsite/internal/store"
)

// --- documents ---

type memDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.Document
}

func newMemDocs() *memDocs {
	return &memDocs{docs: make(map[uuid.UUID]*models.Document)}
}

func (m *memDocs) taken(typ content.DocType, slug string, exclude uuid.UUID) bool {
	for id, d := range m.docs {
		if id != exclude && d.Type == typ && d.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memDocs) Create(_ context.Context, d *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(d.Type, d.Slug, uuid.Nil) {
		return nil, store.ErrSlugTaken
	}
	cp := *d
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.docs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memDocs) Replace(_ context.Context, d *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.docs[d.ID]
	if !ok {
		return nil, nil
	}
	if m.taken(d.Type, d.Slug, d.ID) {
		return nil, store.ErrSlugTaken
	}
	cp := *d
	cp.OwnerID = existing.OwnerID
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	m.docs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memDocs) FindBySlug(_ context.Context, typ content.DocType, slug string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Type == typ && d.Slug == slug {
			out := *d
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memDocs) List(_ context.Context, typ content.DocType, limit, offset int) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		if d.Type == typ {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memDocs) UniqueSlug(_ context.Context, typ content.DocType, base string, exclude uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidate := base
	for n := 2; m.taken(typ, candidate, exclude); n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return candidate, nil
}

func (m *memDocs) put(d *models.Document) *models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.docs[d.ID] = d
	return d
}

type memMedia struct {
	mu    sync.Mutex
	items []models.Media
}

func (m *memMedia) Create(_ context.Context, media *models.Media) (*models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *media
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	m.items = append(m.items, cp)
	out := cp
	return &out, nil
}

func (m *memMedia) AttachToDocument(_ context.Context, documentID uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		for i := range m.items {
			if m.items[i].ID == id {
				docID := documentID
				m.items[i].DocumentID = &docID
			}
		}
	}
	return nil
}

func (m *memMedia) ListByDocument(_ context.Context, documentID uuid.UUID) ([]models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Media
	for _, it := range m.items {
		if it.DocumentID != nil && *it.DocumentID == documentID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memMedia) DeleteByDocument(_ context.Context, documentID uuid.UUID) ([]models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed, kept []models.Media
	for _, it := range m.items {
		if it.DocumentID != nil && *it.DocumentID == documentID {
			removed = append(removed, it)
		} else {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return removed, nil
}

func (m *memMedia) attachedTo(documentID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.DocumentID != nil && *it.DocumentID == documentID {
			n++
		}
	}
	return n
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newMemImages() *memImages {
	return &memImages{objects: make(map[string][]byte)}
}

func (m *memImages) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if m.failOn != "" && strings.HasSuffix(key, m.failOn) {
		return errors.New("upload refused")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memImages) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

func (m *memImages) FileURL(key string) string { return "https://cdn.test/" + key }
func (m *memImages) Bucket() string            { return "test-bucket" }

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// --- catalogue ---

type memProducts struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newMemProducts(ps ...*models.Product) *memProducts {
	m := &memProducts{products: make(map[uuid.UUID]*models.Product)}
	for _, p := range ps {
		m.products[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = uuid.New()
	m.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return nil, nil
	}
	cp := *p
	m.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memProducts) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *memProducts) List(_ context.Context, limit, offset int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memProducts) setQuantity(id uuid.UUID, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id].Quantity = qty
}

type staticRates struct {
	rates pricing.Rates
	err   error
}

func (s staticRates) Rates(context.Context) (pricing.Rates, error) {
	return s.rates, s.err
}

func testRates() staticRates {
	return staticRates{rates: pricing.Rates{"USD": 120, "EUR": 130}}
}

func testProduct(title string, qty int) *models.Product {
	return &models.Product{
		ID:           uuid.New(),
		Title:        title,
		Slug:         strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Price:        10,
		Currency:     "USD",
		Availability: cart.InStock,
		Type:         cart.TypeOwn,
		Quantity:     qty,
		Sizes:        []models.ProductSize{},
	}
}

// --- marketing ---

type memAffiliates struct {
	mu          sync.Mutex
	byCode      map[string]*models.Affiliate
	emails      map[string]bool
	commissions map[uuid.UUID]*models.Commission
	orders      map[string]bool
}

func newMemAffiliates() *memAffiliates {
	return &memAffiliates{
		byCode:      make(map[string]*models.Affiliate),
		emails:      make(map[string]bool),
		commissions: make(map[uuid.UUID]*models.Commission),
		orders:      make(map[string]bool),
	}
}

func (m *memAffiliates) Create(_ context.Context, name, email string, rate float64) (*models.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emails[email] {
		return nil, store.ErrEmailTaken
	}
	a := &models.Affiliate{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Code:      fmt.Sprintf("REF%03d", len(m.byCode)+1),
		Rate:      rate,
		CreatedAt: time.Now(),
	}
	m.emails[email] = true
	m.byCode[a.Code] = a
	return a, nil
}

func (m *memAffiliates) RecordCommission(_ context.Context, code, orderRef string, orderTotal float64) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byCode[code]
	if !ok {
		return nil, nil
	}
	if m.orders[orderRef] {
		return nil, store.ErrDuplicateCommission
	}
	c := &models.Commission{
		ID:          uuid.New(),
		AffiliateID: a.ID,
		OrderRef:    orderRef,
		OrderTotal:  orderTotal,
		Amount:      pricing.Round2(orderTotal * a.Rate),
		Status:      models.CommissionPending,
		CreatedAt:   time.Now(),
	}
	m.orders[orderRef] = true
	m.commissions[c.ID] = c
	return c, nil
}

func (m *memAffiliates) SetCommissionStatus(_ context.Context, id uuid.UUID, status models.CommissionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commissions[id]
	if !ok {
		return false, nil
	}
	c.Status = status
	return true, nil
}

func (m *memAffiliates) Summary(_ context.Context, code string) (*models.AffiliateSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byCode[code]
	if !ok {
		return nil, nil
	}
	sum := &models.AffiliateSummary{Code: code, Email: a.Email}
	for _, c := range m.commissions {
		if c.AffiliateID != a.ID {
			continue
		}
		sum.Orders++
		sum.Sales += c.OrderTotal
		switch c.Status {
		case models.CommissionPending:
			sum.Pending += c.Amount
		case models.CommissionApproved:
			sum.Approved += c.Amount
		case models.CommissionPaid:
			sum.Paid += c.Amount
		}
	}
	return sum, nil
}

type memSubscribers struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]string
	ids    map[string]uuid.UUID
	active map[uuid.UUID]bool
}

func newMemSubscribers() *memSubscribers {
	return &memSubscribers{
		tokens: make(map[uuid.UUID]string),
		ids:    make(map[string]uuid.UUID),
		active: make(map[uuid.UUID]bool),
	}
}

func (m *memSubscribers) Subscribe(_ context.Context, email string) (*models.Subscriber, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[email]
	if !ok {
		id = uuid.New()
		m.ids[email] = id
	}
	token := uuid.NewString()
	m.tokens[id] = token
	m.active[id] = true
	return &models.Subscriber{ID: id, Email: email, CreatedAt: time.Now()}, token, nil
}

func (m *memSubscribers) Unsubscribe(_ context.Context, id uuid.UUID, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active[id] || m.tokens[id] != token {
		return false, nil
	}
	m.active[id] = false
	return true, nil
}

// --- profile ---

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUsers(us ...*models.User) *memUsers {
	m := &memUsers{users: make(map[uuid.UUID]*models.User)}
	for _, u := range us {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (m *memUsers) SetVerificationSecret(_ context.Context, id uuid.UUID, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].VerificationSecret = &secret
	return nil
}

func (m *memUsers) MarkVerified(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.users[id].VerifiedAt = &now
	return nil
}

// --- request helpers ---

func testSession(role string) *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       role + "@example.com",
		DisplayName: role,
		Role:        role,
		CreatedAt:   time.Now(),
	}
}

// serve routes req through a chi router holding one pattern, so URL
// params resolve as they do in production. sess may be nil.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request, sess *session.Data) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess != nil {
				r = r.WithContext(middleware.WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Method(method, pattern, h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rec, &body)
	return body["error"]
}
