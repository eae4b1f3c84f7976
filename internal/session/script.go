package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	shophttp "github.com/wesleyorama2/shopload/internal/http"
	"github.com/wesleyorama2/shopload/internal/reqlog"
)

const (
	// MinAdds and MaxAdds bound the add-to-cart loop: MinAdds <= N < MaxAdds.
	MinAdds = 4
	MaxAdds = 50

	// cancelThreshold: an order is cancelled when the draw is above it
	cancelThreshold = 0.5
)

// Script is the fixed shopper journey: register, log in, browse, fill the
// cart, drop a few items, order, maybe cancel, log out.
type Script struct {
	sink      reqlog.Sink
	metrics   Recorder
	thinkTime time.Duration
}

// ScriptOption configures a Script.
type ScriptOption func(*Script)

// WithThinkTime pauses for d before every call after the first, the way a
// person reads a page before clicking on.
func WithThinkTime(d time.Duration) ScriptOption {
	return func(s *Script) {
		s.thinkTime = d
	}
}

// NewScript creates a script that logs to sink and reports to metrics
// (which may be nil).
func NewScript(sink reqlog.Sink, metrics Recorder, opts ...ScriptOption) *Script {
	s := &Script{sink: sink, metrics: metrics}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run plays the whole journey for user against backend. Any failure aborts
// the run and is returned as a *StepError naming the step and the backend.
func (s *Script) Run(ctx context.Context, backend Backend, user *User, rnd Random) error {
	r := &run{
		exec:    NewExecutor(backend, s.sink, s.metrics),
		backend: backend,
		user:    user,
		rnd:     rnd,
		think:   s.thinkTime,
	}

	if err := r.register(ctx); err != nil {
		return err
	}
	if err := r.login(ctx); err != nil {
		return err
	}
	catalog, err := r.listProducts(ctx)
	if err != nil {
		return err
	}

	adds := MinAdds + rnd.Intn(MaxAdds-MinAdds)
	for i := 0; i < adds; i++ {
		pick := catalog[rnd.Intn(len(catalog))]
		product, err := r.getProduct(ctx, pick.Name)
		if err != nil {
			return err
		}
		if err := r.addToCart(ctx, product.ID); err != nil {
			return err
		}
	}

	cart, err := r.getCart(ctx)
	if err != nil {
		return err
	}
	for _, id := range SampleRemovals(rnd, cart.Items) {
		if err := r.removeFromCart(ctx, id); err != nil {
			return err
		}
	}

	orderID, err := r.placeOrder(ctx)
	if err != nil {
		return err
	}
	if err := r.getOrders(ctx); err != nil {
		return err
	}
	if rnd.Float64() > cancelThreshold {
		if err := r.cancelOrder(ctx, orderID); err != nil {
			return err
		}
	}

	return r.logout(ctx)
}

// run carries the state of one Script.Run.
type run struct {
	exec    *Executor
	backend Backend
	user    *User
	rnd     Random
	think   time.Duration
	sent    int
}

func (r *run) fail(step string, err error) error {
	return &StepError{Step: step, Target: r.backend.String(), Err: err}
}

func (r *run) send(ctx context.Context, req *shophttp.Request) (*shophttp.Response, error) {
	if err := r.pause(ctx); err != nil {
		return nil, r.fail(req.Name, err)
	}
	r.sent++

	resp, err := r.exec.Send(ctx, r.user, req)
	if err != nil {
		return nil, r.fail(req.Name, err)
	}
	return resp, nil
}

// pause waits out the think time before every call but the first.
func (r *run) pause(ctx context.Context) error {
	if r.think <= 0 || r.sent == 0 {
		return nil
	}
	timer := time.NewTimer(r.think)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *run) register(ctx context.Context) error {
	p := r.user.Profile
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodPost, "register").
		Named(StepRegister).
		WithBody(registerBody{Name: p.Name, Email: p.Email, Password: p.Password}))
	return err
}

func (r *run) login(ctx context.Context) error {
	p := r.user.Profile
	resp, err := r.send(ctx, shophttp.NewRequest(http.MethodPost, "login").
		Named(StepLogin).
		WithBody(loginBody{Email: p.Email, Password: p.Password}))
	if err != nil {
		return err
	}

	cookies := resp.Headers.Values("Set-Cookie")
	if len(cookies) == 0 || cookies[0] == "" {
		return r.fail(StepLogin, ErrMissingSessionCookie)
	}
	if err := r.user.Authenticate(cookies[0]); err != nil {
		return r.fail(StepLogin, err)
	}
	return nil
}

func (r *run) listProducts(ctx context.Context) ([]Product, error) {
	resp, err := r.send(ctx, shophttp.NewRequest(http.MethodGet, "products").Named(StepListProducts))
	if err != nil {
		return nil, err
	}
	products, err := decodeProducts(resp.Body())
	if err != nil {
		return nil, r.fail(StepListProducts, err)
	}
	if len(products) == 0 {
		return nil, r.fail(StepListProducts, ErrEmptyCatalog)
	}
	return products, nil
}

func (r *run) getProduct(ctx context.Context, name string) (Product, error) {
	resp, err := r.send(ctx, shophttp.NewRequest(http.MethodGet, "products").
		Named(StepGetProduct).
		WithQueryParam("title", name))
	if err != nil {
		return Product{}, err
	}
	products, err := decodeProducts(resp.Body())
	if err != nil {
		return Product{}, r.fail(StepGetProduct, err)
	}
	if len(products) == 0 {
		return Product{}, r.fail(StepGetProduct, fmt.Errorf("%w: %q", ErrProductNotFound, name))
	}
	return products[0], nil
}

func (r *run) addToCart(ctx context.Context, itemID int) error {
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodPut, "my/cart/add").
		Named(StepAddToCart).
		WithBody(addToCartBody{ItemID: itemID, Quantity: 1}))
	return err
}

func (r *run) getCart(ctx context.Context) (Cart, error) {
	resp, err := r.send(ctx, shophttp.NewRequest(http.MethodGet, "my/cart").Named(StepGetCart))
	if err != nil {
		return Cart{}, err
	}
	var cart Cart
	if err := resp.GetBodyAsJSON(&cart); err != nil {
		return Cart{}, r.fail(StepGetCart, fmt.Errorf("failed to decode cart: %w", err))
	}
	return cart, nil
}

func (r *run) removeFromCart(ctx context.Context, itemID int) error {
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodDelete, "my/cart/remove").
		Named(StepRemoveFromCart).
		WithBody(removeFromCartBody{ItemID: itemID}))
	return err
}

func (r *run) placeOrder(ctx context.Context) (int64, error) {
	form := url.Values{}
	form.Set("delivery_address", r.user.Profile.DeliveryAddress)

	resp, err := r.send(ctx, shophttp.NewRequest(http.MethodPost, "my/orders/add").
		Named(StepPlaceOrder).
		WithBody(form))
	if err != nil {
		return 0, err
	}

	orderID := gjson.GetBytes(resp.Body(), "order_id")
	if orderID.Type != gjson.Number {
		return 0, r.fail(StepPlaceOrder, fmt.Errorf("%w: order_id", ErrMissingField))
	}
	return orderID.Int(), nil
}

func (r *run) getOrders(ctx context.Context) error {
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodGet, "my/orders").Named(StepGetOrders))
	return err
}

func (r *run) cancelOrder(ctx context.Context, orderID int64) error {
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodDelete, "my/orders/cancel").
		Named(StepCancelOrder).
		WithBody(cancelOrderBody{OrderID: orderID}))
	return err
}

func (r *run) logout(ctx context.Context) error {
	_, err := r.send(ctx, shophttp.NewRequest(http.MethodPost, "logout").Named(StepLogout))
	return err
}

// decodeProducts extracts the "products" array of a catalog response.
func decodeProducts(body []byte) ([]Product, error) {
	result := gjson.GetBytes(body, "products")
	if !result.IsArray() {
		return nil, fmt.Errorf("%w: products", ErrMissingField)
	}
	var products []Product
	if err := json.Unmarshal([]byte(result.Raw), &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
