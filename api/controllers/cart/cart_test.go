package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fashionstore-backend/api/middleware"
	cartsvc "github.com/angelmondragon/fashionstore-backend/internal/cart"
	"github.com/angelmondragon/fashionstore-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/fashionstore-backend/pkg/errors"
)

type stubCartService struct {
	view       *cartsvc.CartView
	err        error
	lastActor  auth.Actor
	lastUserID uuid.UUID
	lastInput  cartsvc.AddItemInput
	lastItemID uuid.UUID
	lastQty    int
}

func (s *stubCartService) GetOrCreateCart(_ context.Context, actor auth.Actor, userID uuid.UUID) (*cartsvc.CartView, error) {
	s.lastActor, s.lastUserID = actor, userID
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, actor auth.Actor, userID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartView, error) {
	s.lastActor, s.lastUserID, s.lastInput = actor, userID, input
	return s.view, s.err
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, actor auth.Actor, userID, itemID uuid.UUID, quantity int) (*cartsvc.CartView, error) {
	s.lastActor, s.lastUserID, s.lastItemID, s.lastQty = actor, userID, itemID, quantity
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, actor auth.Actor, userID, itemID uuid.UUID) (*cartsvc.CartView, error) {
	s.lastActor, s.lastUserID, s.lastItemID = actor, userID, itemID
	return s.view, s.err
}

func (s *stubCartService) ClearCart(_ context.Context, actor auth.Actor, userID uuid.UUID) (*cartsvc.CartView, error) {
	s.lastActor, s.lastUserID = actor, userID
	return s.view, s.err
}

func newRequest(method, target string, body string, actor *auth.Actor, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}

func TestCartFetchSuccess(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	view := &cartsvc.CartView{CartID: uuid.New(), User: actor.UserID, TotalAmount: "0.00"}
	svc := &stubCartService{view: view}

	req := newRequest(http.MethodGet, "/", "", &actor, map[string]string{"userId": actor.UserID.String()})
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartsvc.CartView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CartID != view.CartID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.CartID)
	}
	if svc.lastUserID != actor.UserID || svc.lastActor != actor {
		t.Fatalf("service received wrong identity")
	}
}

func TestCartFetchRequiresActor(t *testing.T) {
	req := newRequest(http.MethodGet, "/", "", nil, map[string]string{"userId": uuid.NewString()})
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemPassesSanitizedInput(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	productID := uuid.New()
	svc := &stubCartService{view: &cartsvc.CartView{}}

	body := `{"productId":"` + productID.String() + `","size":" M ","color":"Black","quantity":2}`
	req := newRequest(http.MethodPost, "/", body, &actor, map[string]string{"userId": actor.UserID.String()})
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	want := cartsvc.AddItemInput{ProductID: productID, Size: "M", Color: "Black", Quantity: 2}
	if svc.lastInput != want {
		t.Fatalf("unexpected input: %+v", svc.lastInput)
	}
}

func TestCartAddItemRejectsMissingFields(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	svc := &stubCartService{}
	req := newRequest(http.MethodPost, "/", `{"quantity":1}`, &actor, map[string]string{"userId": actor.UserID.String()})
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.lastActor.UserID != uuid.Nil {
		t.Fatalf("service should not be called")
	}
}

func TestCartAddItemSurfacesStockDetails(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").WithDetails(map[string]any{"field": "quantity", "available": 3})}

	body := `{"productId":"` + uuid.NewString() + `","size":"M","color":"Black","quantity":5}`
	req := newRequest(http.MethodPost, "/", body, &actor, map[string]string{"userId": actor.UserID.String()})
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Details["available"] != float64(3) {
		t.Fatalf("expected available detail, got %+v", envelope.Error.Details)
	}
}

func TestCartUpdateItemRoutesIDs(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	itemID := uuid.New()
	svc := &stubCartService{view: &cartsvc.CartView{}}

	req := newRequest(http.MethodPatch, "/", `{"quantity":4}`, &actor, map[string]string{
		"userId": actor.UserID.String(),
		"itemId": itemID.String(),
	})
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastItemID != itemID || svc.lastQty != 4 {
		t.Fatalf("unexpected update: item=%s qty=%d", svc.lastItemID, svc.lastQty)
	}
}

func TestCartRemoveItemInvalidItemID(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	req := newRequest(http.MethodDelete, "/", "", &actor, map[string]string{
		"userId": actor.UserID.String(),
		"itemId": "not-a-uuid",
	})
	resp := httptest.NewRecorder()
	CartRemoveItem(&stubCartService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartClearForbiddenForOtherUser(t *testing.T) {
	actor := auth.Actor{UserID: uuid.New()}
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")}
	req := newRequest(http.MethodDelete, "/", "", &actor, map[string]string{"userId": uuid.NewString()})
	resp := httptest.NewRecorder()
	CartClear(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
