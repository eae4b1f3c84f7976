package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	shophttp "github.com/wesleyorama2/shopload/internal/http"
	"github.com/wesleyorama2/shopload/internal/identity"
)

// stubRandom returns scripted values. intn receives the bound of each Intn
// call; Shuffle leaves the order unchanged.
type stubRandom struct {
	intn  func(n int) int
	float float64
	calls []int
}

func (s *stubRandom) Intn(n int) int {
	s.calls = append(s.calls, n)
	if s.intn == nil {
		return 0
	}
	return s.intn(n)
}

func (s *stubRandom) Float64() float64 { return s.float }

func (s *stubRandom) Shuffle(n int, swap func(i, j int)) {}

// seenRequest is what the shop server observed for one call.
type seenRequest struct {
	Method        string
	URI           string
	Authorization string
	ContentType   string
}

// shopServer answers the shop API with canned bodies.
type shopServer struct {
	*httptest.Server

	mu   sync.Mutex
	seen []seenRequest

	// overrides by "METHOD path"
	handlers map[string]http.HandlerFunc
}

func newShopServer(t *testing.T) *shopServer {
	t.Helper()
	s := &shopServer{handlers: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *shopServer) handle(route string, h http.HandlerFunc) {
	s.handlers[route] = h
}

func (s *shopServer) requests() []seenRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]seenRequest, len(s.seen))
	copy(out, s.seen)
	return out
}

func (s *shopServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.seen = append(s.seen, seenRequest{
		Method:        r.Method,
		URI:           r.URL.RequestURI(),
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
	})
	s.mu.Unlock()

	route := r.Method + " " + r.URL.Path
	if h, ok := s.handlers[route]; ok {
		h(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch route {
	case "POST /login":
		w.Header().Set("Set-Cookie", "tok123")
		w.WriteHeader(http.StatusOK)
	case "GET /products":
		w.Write([]byte(`{"products":[{"id":1,"name":"Widget","price":9.99,"manufacturer":"Acme","type_name":"Gadget"}]}`))
	case "GET /my/cart":
		w.Write([]byte(`{"cart":[{"id":1,"product":"Widget","price":9.99,"quantity":2}],"total":19.98}`))
	case "POST /my/orders/add":
		w.Write([]byte(`{"order_id":42}`))
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// clientBackend adapts a plain client to Backend.
type clientBackend struct {
	*shophttp.Client
}

func (b clientBackend) String() string { return b.BaseURL() }

func newBackend(baseURL string) clientBackend {
	return clientBackend{shophttp.NewClient(shophttp.WithBaseURL(baseURL))}
}

func testUser() *User {
	return NewUser(identity.Profile{
		Name:            "Jane Doe",
		Email:           "jane.1a2b3c4d@shop.test",
		Password:        "Secret123abc",
		DeliveryAddress: "1 Main St, Springfield",
	})
}
