package router

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDeriveAdminPermissionModule(t *testing.T) {
	cases := []struct {
		object string
		want   string
	}{
		{object: "/admin/affiliates", want: "affiliates"},
		{object: "/admin/affiliates/:id/approve", want: "affiliates"},
		{object: "/admin/affiliate-settings", want: "affiliate-settings"},
		{object: "/admin/authz/roles", want: "authz"},
		{object: "/admin/me", want: "me"},
		{object: "/health", want: "health"},
		{object: "", want: "system"},
	}
	for _, tc := range cases {
		if got := deriveAdminPermissionModule(tc.object); got != tc.want {
			t.Fatalf("module for %q want %q got %q", tc.object, tc.want, got)
		}
	}
}

func TestBuildAdminPermissionCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	noop := func(c *gin.Context) {}
	r.POST("/api/v1/admin/login", noop)
	r.GET("/api/v1/admin/affiliates", noop)
	r.POST("/api/v1/admin/affiliates/:id/approve", noop)
	r.GET("/api/v1/captcha", noop)

	items := buildAdminPermissionCatalog(r)
	if len(items) != 2 {
		t.Fatalf("catalog should list 2 admin routes, got %d: %+v", len(items), items)
	}

	byPermission := make(map[string]adminPermissionCatalogItem, len(items))
	for _, item := range items {
		byPermission[item.Permission] = item
	}

	list, ok := byPermission["GET:/admin/affiliates"]
	if !ok {
		t.Fatalf("catalog missing GET:/admin/affiliates, got %+v", items)
	}
	if list.Module != "affiliates" {
		t.Fatalf("module want affiliates got %s", list.Module)
	}

	if _, ok := byPermission["POST:/admin/affiliates/:id/approve"]; !ok {
		t.Fatalf("catalog missing approve route, got %+v", items)
	}
	if _, ok := byPermission["POST:/admin/login"]; ok {
		t.Fatalf("login route must stay out of the grantable catalog")
	}
}
