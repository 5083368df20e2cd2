//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < seededProducts {
		t.Fatalf("expected at least %d products, got %d", seededProducts, len(products))
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/" + mugProductID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.ID != mugProductID {
		t.Errorf("id: got %q, want %q", p.ID, mugProductID)
	}
	if p.Name != "Double-Wall Glass Mug" {
		t.Errorf("name: got %q, want %q", p.Name, "Double-Wall Glass Mug")
	}
	assertAmount(t, p.Price, 14)
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/99999999-9999-9999-9999-999999999999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestCreateProduct_AdminOnly(t *testing.T) {
	body := map[string]any{
		"name":  "Hand Towel",
		"price": "8.00",
		"stock": 10,
	}

	// Customers are rejected.
	resp := doRequest(t, http.MethodPost, "/api/products", body, customerToken(t))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", resp.StatusCode)
	}

	// Admins can create.
	resp = doRequest(t, http.MethodPost, "/api/products", body, adminToken(t))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name != "Hand Towel" {
		t.Errorf("name: got %q, want %q", p.Name, "Hand Towel")
	}
	if p.Stock != 10 {
		t.Errorf("stock: got %d, want 10", p.Stock)
	}
}

func TestUpdateProduct_Admin(t *testing.T) {
	create := doRequest(t, http.MethodPost, "/api/products", map[string]any{
		"name":  "Sample Filter Pack",
		"price": "4.50",
		"stock": 30,
	}, adminToken(t))
	p := decodeJSON[productResponse](t, create)
	create.Body.Close()

	resp := doRequest(t, http.MethodPatch, "/api/products/"+p.ID, map[string]any{
		"price": "5.00",
	}, adminToken(t))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	updated := decodeJSON[productResponse](t, resp)
	assertAmount(t, updated.Price, 5)
	if updated.Stock != 30 {
		t.Errorf("stock changed unexpectedly: got %d, want 30", updated.Stock)
	}
}
