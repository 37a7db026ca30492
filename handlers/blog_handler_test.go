package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/testsupport"
	"github.com/gofiber/fiber/v2"
)

func TestBlogLifecycle(t *testing.T) {
	app := testsupport.NewApp(t)
	author := testsupport.CreateCounselor(t)
	other := testsupport.CreateCounselor(t)
	admin := testsupport.CreateAdmin(t, models.RoleAdmin)
	authorToken := testsupport.Token(t, author.ID, models.RoleCounselor)

	status, env := testsupport.JSON(t, app, http.MethodPost, "/api/v1/blogs", authorToken, fiber.Map{
		"title":    "Coping With Exam Stress",
		"markdown": "Breathing **slowly** helps.\n\n<script>alert(1)</script>",
		"tags":     []string{"anxiety", "students"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %s", status, env.Message)
	}
	var blog models.Blog
	env.Into(t, &blog)
	if !strings.HasPrefix(blog.Slug, "coping-with-exam-stress-") {
		t.Fatalf("slug = %q", blog.Slug)
	}
	if !strings.Contains(blog.HTML, "<strong>slowly</strong>") || strings.Contains(blog.HTML, "<script>") {
		t.Fatalf("html = %q", blog.HTML)
	}

	status, _ = testsupport.JSON(t, app, http.MethodPost, "/api/v1/blogs", authorToken, fiber.Map{
		"title":     "Draft Post",
		"markdown":  "Not ready for readers yet.",
		"published": false,
	})
	if status != http.StatusCreated {
		t.Fatalf("create draft: %d", status)
	}

	status, env = testsupport.JSON(t, app, http.MethodGet, "/api/v1/blogs?tag=anxiety", "", nil)
	if status != http.StatusOK || env.Meta["total"] != float64(1) {
		t.Fatalf("tag listing: %d %v", status, env.Meta)
	}
	status, env = testsupport.JSON(t, app, http.MethodGet, "/api/v1/blogs", "", nil)
	if status != http.StatusOK || env.Meta["total"] != float64(1) {
		t.Fatalf("drafts must stay hidden: %d %v", status, env.Meta)
	}

	status, env = testsupport.JSON(t, app, http.MethodGet, "/api/v1/blogs/"+blog.Slug, "", nil)
	if status != http.StatusOK {
		t.Fatalf("get by slug: %d %s", status, env.Message)
	}
	var fetched models.Blog
	env.Into(t, &fetched)
	if fetched.Counselor == nil || fetched.Counselor.Email != "" {
		t.Fatalf("author should be present and redacted: %+v", fetched.Counselor)
	}

	path := "/api/v1/blogs/" + blog.ID.String()
	otherToken := testsupport.Token(t, other.ID, models.RoleCounselor)
	if status, _ := testsupport.JSON(t, app, http.MethodPut, path, otherToken, fiber.Map{"title": "Hijacked"}); status != http.StatusNotFound {
		t.Fatalf("foreign update: got %d, want 404", status)
	}
	status, env = testsupport.JSON(t, app, http.MethodPut, path, authorToken, fiber.Map{"markdown": "Updated _content_ here."})
	if status != http.StatusOK {
		t.Fatalf("update: %d %s", status, env.Message)
	}
	env.Into(t, &blog)
	if !strings.Contains(blog.HTML, "<em>content</em>") {
		t.Fatalf("html after update = %q", blog.HTML)
	}

	adminToken := testsupport.Token(t, admin.ID, models.RoleAdmin)
	if status, env := testsupport.JSON(t, app, http.MethodDelete, "/api/v1/admin/blogs/"+blog.ID.String(), adminToken, nil); status != http.StatusOK {
		t.Fatalf("admin delete: %d %s", status, env.Message)
	}
	if status, _ := testsupport.JSON(t, app, http.MethodGet, "/api/v1/blogs/"+blog.Slug, "", nil); status != http.StatusNotFound {
		t.Fatalf("deleted blog: got %d, want 404", status)
	}
}

func TestBlogRequiresApprovedCounselor(t *testing.T) {
	app := testsupport.NewApp(t)
	counselor := testsupport.CreateCounselor(t)
	database.DB.Model(counselor).Update("application_status", models.ApplicationPending)
	status, _ := testsupport.JSON(t, app, http.MethodPost, "/api/v1/blogs", testsupport.Token(t, counselor.ID, models.RoleCounselor), fiber.Map{
		"title":    "Too Early",
		"markdown": "Waiting on approval first.",
	})
	if status != http.StatusForbidden {
		t.Fatalf("pending counselor: got %d, want 403", status)
	}
}
