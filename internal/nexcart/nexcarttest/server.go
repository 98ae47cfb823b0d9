// Package nexcarttest runs an in-memory NexCart backend for tests.
package nexcarttest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Product is a catalog entry served by the fake backend
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         string  `json:"price"`
	DiscountPrice *string `json:"discount_price"`
	PrimaryImage  string  `json:"primary_image,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	Inventory     int     `json:"inventory"`
}

// CartItem is a remote cart line
type CartItem struct {
	ID        int64
	ProductID int64
	Quantity  int
}

// Address mirrors the backend address resource
type Address struct {
	ID               int64  `json:"id"`
	AddressType      string `json:"address_type"`
	Default          bool   `json:"default"`
	StreetAddress    string `json:"street_address"`
	ApartmentAddress string `json:"apartment_address"`
	City             string `json:"city"`
	State            string `json:"state"`
	ZipCode          string `json:"zip_code"`
	Country          string `json:"country"`
}

// Order mirrors the backend order resource
type Order struct {
	ID                int64
	Status            string
	ShippingAddressID int64
	BillingAddressID  int64
	Items             []CartItem
	Total             float64
	CreatedAt         time.Time
}

// Call is one request received by the fake backend
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

type failure struct {
	status int
	detail string
}

// Server is an httptest server speaking the NexCart REST API
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	token     string
	username  string
	password  string
	products  map[int64]Product
	cart      []CartItem
	addresses []Address
	orders    []Order
	nextID    int64
	failures  map[string]failure
	failAdds  map[int64]bool
	calls     []Call
}

// NewServer starts a fake backend that accepts the given bearer token
func NewServer(t testing.TB, token string) *Server {
	s := &Server{
		token:    token,
		products: make(map[int64]Product),
		failures: make(map[string]failure),
		failAdds: make(map[int64]bool),
		nextID:   100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart/my_cart/{$}", s.authed(s.handleMyCart))
	mux.HandleFunc("POST /cart/add_item/{$}", s.authed(s.handleAddItem))
	mux.HandleFunc("POST /cart/update_item/{$}", s.authed(s.handleUpdateItem))
	mux.HandleFunc("POST /cart/remove_item/{$}", s.authed(s.handleRemoveItem))
	mux.HandleFunc("POST /cart/clear/{$}", s.authed(s.handleClear))
	mux.HandleFunc("GET /addresses/{$}", s.authed(s.handleListAddresses))
	mux.HandleFunc("POST /addresses/{$}", s.authed(s.handleCreateAddress))
	mux.HandleFunc("POST /orders/create_from_cart/{$}", s.authed(s.handleCreateOrder))
	mux.HandleFunc("GET /orders/{$}", s.authed(s.handleListOrders))
	mux.HandleFunc("GET /orders/{id}/{$}", s.authed(s.handleGetOrder))
	mux.HandleFunc("POST /orders/{id}/cancel_order/{$}", s.authed(s.handleCancelOrder))
	mux.HandleFunc("GET /products/{$}", s.handleListProducts)
	mux.HandleFunc("GET /products/{id}/{$}", s.handleGetProduct)
	mux.HandleFunc("POST /token/{$}", s.handleToken)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// AddProduct registers a catalog product. discount may be empty.
func (s *Server) AddProduct(id int64, name, price, discount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Product{ID: id, Name: name, Price: price, PrimaryImage: fmt.Sprintf("/media/products/%d.jpg", id), Inventory: 10}
	if discount != "" {
		p.DiscountPrice = &discount
	}
	s.products[id] = p
}

// SetCart replaces the remote cart
func (s *Server) SetCart(items ...CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append([]CartItem(nil), items...)
}

// Cart returns a copy of the remote cart
func (s *Server) Cart() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CartItem(nil), s.cart...)
}

// AddAddress stores an address and returns its ID
func (s *Server) AddAddress(a Address) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.newID()
	s.addresses = append(s.addresses, a)
	return a.ID
}

// Addresses returns a copy of the stored addresses
func (s *Server) Addresses() []Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Address(nil), s.addresses...)
}

// AddOrder stores an order and returns its ID
func (s *Server) AddOrder(o Order) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.newID()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	s.orders = append(s.orders, o)
	return o.ID
}

// Orders returns a copy of the stored orders
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

// SetCredentials enables POST /token/ for the given username and password
func (s *Server) SetCredentials(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// Fail makes every request to path answer with status and detail
func (s *Server) Fail(path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, detail: detail}
}

// Recover clears a failure registered with Fail
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// FailAddItem makes add_item fail for one product only
func (s *Server) FailAddItem(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAdds[productID] = true
}

// Calls returns the requests received for path, in order
func (s *Server) Calls(path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns the number of requests received in total
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: decoded})
		f, failing := s.failures[r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]string{"detail": f.detail})
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleMyCart(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.cartJSON())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Product ID is required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdds[req.ProductID] {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "Temporarily unavailable."})
		return
	}
	if _, ok := s.products[req.ProductID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Product not found."})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	for i := range s.cart {
		if s.cart[i].ProductID == req.ProductID {
			s.cart[i].Quantity += req.Quantity
			writeJSON(w, http.StatusOK, s.cartJSON())
			return
		}
	}
	s.cart = append(s.cart, CartItem{ID: s.newID(), ProductID: req.ProductID, Quantity: req.Quantity})
	writeJSON(w, http.StatusOK, s.cartJSON())
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartItemID int64 `json:"cart_item_id"`
		Quantity   int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CartItemID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cart item ID and quantity are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ID == req.CartItemID {
			s.cart[i].Quantity = req.Quantity
			writeJSON(w, http.StatusOK, s.cartJSON())
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Cart item not found."})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartItemID int64 `json:"cart_item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CartItemID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cart item ID is required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		if s.cart[i].ID == req.CartItemID {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			writeJSON(w, http.StatusOK, s.cartJSON())
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Cart item not found."})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	writeJSON(w, http.StatusOK, s.cartJSON())
}

func (s *Server) handleListAddresses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := append([]Address{}, s.addresses...)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var a Address
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil || a.StreetAddress == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"street_address": []string{"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.newID()
	s.addresses = append(s.addresses, a)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingAddressID int64 `json:"shipping_address_id"`
		BillingAddressID  int64 `json:"billing_address_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cart) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Cannot create order from empty cart."})
		return
	}
	if !s.hasAddress(req.ShippingAddressID) || !s.hasAddress(req.BillingAddressID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Shipping or billing address not found."})
		return
	}

	order := Order{
		ID:                s.newID(),
		Status:            "pending",
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		Items:             append([]CartItem(nil), s.cart...),
		CreatedAt:         time.Now().UTC(),
	}
	for _, item := range s.cart {
		price, _ := strconv.ParseFloat(s.products[item.ProductID].Price, 64)
		order.Total += price * float64(item.Quantity)
	}
	s.orders = append(s.orders, order)
	s.cart = nil
	writeJSON(w, http.StatusCreated, s.orderJSON(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]map[string]any, 0, len(s.orders))
	for _, o := range s.orders {
		results = append(results, s.orderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findOrder(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Order matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, s.orderJSON(s.orders[i]))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findOrder(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Order matches the given query."})
		return
	}
	if st := s.orders[i].Status; st == "delivered" || st == "cancelled" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": fmt.Sprintf("Cannot cancel order with status '%s'.", st)})
		return
	}
	s.orders[i].Status = "cancelled"
	writeJSON(w, http.StatusOK, s.orderJSON(s.orders[i]))
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		results = append(results, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "results": results})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.username == "" || req.Username != s.username || req.Password != s.password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": s.token, "refresh": "refresh-" + s.token})
}

func (s *Server) hasAddress(id int64) bool {
	for _, a := range s.addresses {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) findOrder(rawID string) (int, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, false
	}
	for i, o := range s.orders {
		if o.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) address(id int64) any {
	for _, a := range s.addresses {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) cartJSON() map[string]any {
	items := make([]map[string]any, 0, len(s.cart))
	for _, item := range s.cart {
		items = append(items, map[string]any{
			"id":       item.ID,
			"product":  s.products[item.ProductID],
			"quantity": item.Quantity,
		})
	}
	return map[string]any{"id": 1, "items": items}
}

func (s *Server) orderJSON(o Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		p := s.products[item.ProductID]
		items = append(items, map[string]any{
			"id":       item.ID,
			"product":  p,
			"quantity": item.Quantity,
			"price":    p.Price,
		})
	}
	return map[string]any{
		"id":               o.ID,
		"status":           o.Status,
		"shipping_address": s.address(o.ShippingAddressID),
		"billing_address":  s.address(o.BillingAddressID),
		"payment_status":   false,
		"shipping_cost":    "0.00",
		"total_amount":     fmt.Sprintf("%.2f", o.Total),
		"items":            items,
		"created_at":       o.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
