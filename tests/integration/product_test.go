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

	list := decodeJSON[productListResponse](t, resp)
	if len(list.Products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(list.Products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[productListResponse](t, resp)

	var loaf *productResponse
	for i := range list.Products {
		if list.Products[i].ID == "sourdough-loaf" {
			loaf = &list.Products[i]
			break
		}
	}

	if loaf == nil {
		t.Fatal("product sourdough-loaf not found")
	}
	if loaf.Name != "Sourdough Loaf" {
		t.Errorf("name: got %q, want %q", loaf.Name, "Sourdough Loaf")
	}
	if loaf.Price != 6.5 {
		t.Errorf("price: got %v, want 6.5", loaf.Price)
	}
	if loaf.Category != "Bread" {
		t.Errorf("category: got %q, want %q", loaf.Category, "Bread")
	}
	if loaf.Image.Thumbnail == "" {
		t.Error("image.thumbnail is empty")
	}
	if loaf.Image.Desktop == "" {
		t.Error("image.desktop is empty")
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/banitsa")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "banitsa" {
		t.Errorf("id: got %q, want %q", product.ID, "banitsa")
	}
	if product.Name != "Cheese Banitsa" {
		t.Errorf("name: got %q, want %q", product.Name, "Cheese Banitsa")
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/ghost-bread")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestListCategories(t *testing.T) {
	resp := doGet(t, "/api/categories")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[categoryListResponse](t, resp)
	if len(list.Categories) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(list.Categories))
	}
	if list.Categories[0].Slug != "bread" {
		t.Errorf("first category: got %q, want bread", list.Categories[0].Slug)
	}
}

func TestListCategoryProducts(t *testing.T) {
	resp := doGet(t, "/api/categories/cookie/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[productListResponse](t, resp)
	if len(list.Products) != 2 {
		t.Fatalf("expected 2 cookie products, got %d", len(list.Products))
	}
}
