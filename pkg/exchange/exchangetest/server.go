// Package exchangetest provides an in-process fake of the exchange API for tests.
package exchangetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"resxwatch/pkg/exchange"
)

const (
	Username = "testuser"
	Password = "password123"
	Token    = "test-token"
)

// Server is a fake exchange. Fields prefixed with Fail make the matching
// endpoint answer 500; OmitTradeBalance drops "balance" from trade replies.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	resources    map[string]exchange.Resource
	positions    map[string]exchange.Position
	transactions []exchange.Transaction
	balance      decimal.Decimal
	calls        map[string]int

	FailResources    bool
	FailPositions    bool
	FailTransactions bool
	FailMe           bool
	FailUpdate       bool
	OmitTradeBalance bool
}

// NewServer starts a fake seeded with the simulator's five default resources
// and a test user holding 10000 in cash.
func NewServer() *Server {
	s := &Server{
		resources: map[string]exchange.Resource{},
		positions: map[string]exchange.Position{},
		balance:   decimal.NewFromInt(10000),
		calls:     map[string]int{},
	}
	seed := []struct {
		symbol, name string
		price        int64
	}{
		{"ENG", "Energy Units", 100},
		{"DTA", "Digital Tokens", 50},
		{"CRY", "Crypto Crystals", 200},
		{"BIO", "Bio Materials", 75},
		{"MET", "Rare Metals", 150},
	}
	for i, r := range seed {
		s.resources[r.symbol] = exchange.Resource{
			ID:           int64(i + 1),
			Symbol:       r.symbol,
			Name:         r.name,
			CurrentPrice: decimal.NewFromInt(r.price),
			LastUpdated:  exchange.Timestamp{Time: time.Now().UTC()},
		}
	}

	r := chi.NewRouter()
	r.Post("/api/login", s.login)
	r.Post("/api/register", s.register)
	r.Get("/api/resources", s.listResources)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/me", s.me)
		r.Get("/api/positions", s.listPositions)
		r.Get("/api/transactions", s.listTransactions)
		r.Post("/api/trade", s.trade)
		r.Post("/api/update-prices", s.updatePrices)
	})

	s.Server = httptest.NewServer(s.count(r))
	return s
}

// SetPrice overrides a resource price.
func (s *Server) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.resources[symbol]
	res.Symbol = symbol
	if res.Name == "" {
		res.Name = symbol
	}
	res.CurrentPrice = price
	s.resources[symbol] = res
}

// RemoveResource drops a symbol from the price list.
func (s *Server) RemoveResource(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, symbol)
}

// SetPosition sets (or with zero quantity keeps) a holding for the test user.
func (s *Server) SetPosition(symbol string, qty, avg decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.resources[symbol]
	s.positions[symbol] = exchange.Position{
		ID:           int64(len(s.positions) + 1),
		Resource:     exchange.ResourceRef{ID: res.ID, Symbol: symbol, Name: res.Name, CurrentPrice: res.CurrentPrice},
		Quantity:     qty,
		AveragePrice: avg,
	}
}

// Calls returns how many times a path was hit.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Balance returns the test user's cash.
func (s *Server) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// SetFailures toggles endpoint failures under the server lock.
func (s *Server) SetFailures(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad form")
		return
	}
	if r.PostForm.Get("username") != Username || r.PostForm.Get("password") != Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, exchange.LoginResponse{
		Message:     "Login successful",
		AccessToken: Token,
		TokenType:   "bearer",
		User:        s.user(),
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req exchange.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}
	if req.Username == Username {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	writeJSON(w, http.StatusOK, exchange.RegisterResponse{
		Message: "User created successfully",
		Token:   Token,
		User:    &exchange.User{ID: 2, Username: req.Username, Email: req.Email, Balance: decimal.NewFromInt(10000)},
	})
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	fail := s.FailMe
	s.mu.Unlock()
	if fail {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": s.user()})
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailResources {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]exchange.Resource, 0, len(s.resources))
	for _, res := range s.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listPositions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPositions {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]exchange.Position, 0, len(s.positions))
	for sym, p := range s.positions {
		price := s.resources[sym].CurrentPrice
		p.Resource.CurrentPrice = price
		value := p.Quantity.Mul(price)
		pl := value.Sub(p.Quantity.Mul(p.AveragePrice))
		p.CurrentValue = &value
		p.ProfitLoss = &pl
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTransactions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTransactions {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]exchange.Transaction, len(s.transactions))
	// newest first
	for i, tx := range s.transactions {
		out[len(out)-1-i] = tx
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) trade(w http.ResponseWriter, r *http.Request) {
	var req exchange.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "bad json")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.resources[req.ResourceSymbol]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Resource not found")
		return
	}
	if !req.Quantity.IsPositive() {
		writeDetail(w, http.StatusBadRequest, "resource_symbol and quantity are required")
		return
	}

	total := req.Quantity.Mul(res.CurrentPrice)
	pos := s.positions[req.ResourceSymbol]
	switch req.TradeType {
	case "buy":
		if s.balance.LessThan(total) {
			writeDetail(w, http.StatusBadRequest, "Insufficient balance")
			return
		}
		s.balance = s.balance.Sub(total)
		newQty := pos.Quantity.Add(req.Quantity)
		pos.AveragePrice = pos.Quantity.Mul(pos.AveragePrice).Add(total).Div(newQty)
		pos.Quantity = newQty
		pos.Resource = exchange.ResourceRef{ID: res.ID, Symbol: res.Symbol, Name: res.Name}
		s.positions[req.ResourceSymbol] = pos
	case "sell":
		if pos.Quantity.LessThan(req.Quantity) {
			writeDetail(w, http.StatusBadRequest, "Insufficient quantity to sell")
			return
		}
		s.balance = s.balance.Add(total)
		pos.Quantity = pos.Quantity.Sub(req.Quantity)
		if pos.Quantity.IsZero() {
			delete(s.positions, req.ResourceSymbol)
		} else {
			s.positions[req.ResourceSymbol] = pos
		}
	default:
		writeDetail(w, http.StatusBadRequest, "trade_type must be 'buy' or 'sell'")
		return
	}

	tx := exchange.Transaction{
		ID:              int64(len(s.transactions) + 1),
		Symbol:          res.Symbol,
		Name:            res.Name,
		TransactionType: req.TradeType,
		Quantity:        req.Quantity,
		Price:           res.CurrentPrice,
		TotalValue:      total,
		Timestamp:       exchange.Timestamp{Time: time.Now().UTC()},
	}
	s.transactions = append(s.transactions, tx)

	resp := exchange.TradeResponse{Message: "Trade executed successfully", TransactionID: tx.ID}
	if !s.OmitTradeBalance {
		bal := s.balance
		resp.Balance = &bal
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updatePrices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate {
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	// deterministic +1% step so tests can predict prices
	step := decimal.RequireFromString("1.01")
	for sym, res := range s.resources {
		res.CurrentPrice = res.CurrentPrice.Mul(step)
		s.resources[sym] = res
	}
	writeJSON(w, http.StatusOK, exchange.UpdatePricesResponse{
		Message:      "Updated prices",
		UpdatedCount: len(s.resources),
	})
}

func (s *Server) user() *exchange.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &exchange.User{ID: 1, Username: Username, Email: "test@example.com", Balance: s.balance}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
