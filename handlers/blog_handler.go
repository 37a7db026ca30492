package handlers

import (
	"bytes"

	"github.com/anjiri1684/counsel_hub/apperrors"
	"github.com/anjiri1684/counsel_hub/database"
	"github.com/anjiri1684/counsel_hub/middleware"
	"github.com/anjiri1684/counsel_hub/models"
	"github.com/anjiri1684/counsel_hub/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer leaves raw HTML in posts escaped.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type CreateBlogRequest struct {
	Title     string   `json:"title" validate:"required,min=3,max=255"`
	Markdown  string   `json:"markdown" validate:"required,min=10,max=100000"`
	Tags      []string `json:"tags" validate:"max=10,dive,min=2,max=40"`
	Published *bool    `json:"published"`
}

type UpdateBlogRequest struct {
	Title     *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Markdown  *string  `json:"markdown" validate:"omitempty,min=10,max=100000"`
	Tags      []string `json:"tags" validate:"omitempty,max=10,dive,min=2,max=40"`
	Published *bool    `json:"published"`
}

func CreateBlog(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUser(c)
	var req CreateBlogRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	counselor, err := loadCounselor(userID)
	if err != nil {
		return err
	}
	if !counselor.IsBookable() {
		return apperrors.Forbidden("Only approved counselors can publish blogs")
	}

	html, err := renderMarkdown(req.Markdown)
	if err != nil {
		return apperrors.BadRequest("Markdown could not be rendered")
	}
	blog := models.Blog{
		CounselorID: userID,
		Title:       req.Title,
		Slug:        utils.GenerateSlug(req.Title),
		Markdown:    req.Markdown,
		HTML:        html,
		Tags:        req.Tags,
		Published:   req.Published == nil || *req.Published,
	}
	if err := database.DB.Create(&blog).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusCreated, "Blog created", blog)
}

func loadOwnBlog(c *fiber.Ctx) (*models.Blog, error) {
	userID, _ := middleware.CurrentUser(c)
	id, err := paramUUID(c, "blogId")
	if err != nil {
		return nil, err
	}
	var blog models.Blog
	if err := database.DB.First(&blog, "id = ? AND counselor_id = ?", id, userID).Error; err != nil {
		return nil, apperrors.NotFound("Blog not found")
	}
	return &blog, nil
}

func UpdateBlog(c *fiber.Ctx) error {
	var req UpdateBlogRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	blog, err := loadOwnBlog(c)
	if err != nil {
		return err
	}

	if req.Title != nil {
		blog.Title = *req.Title
	}
	if req.Markdown != nil {
		html, err := renderMarkdown(*req.Markdown)
		if err != nil {
			return apperrors.BadRequest("Markdown could not be rendered")
		}
		blog.Markdown = *req.Markdown
		blog.HTML = html
	}
	if req.Tags != nil {
		blog.Tags = req.Tags
	}
	if req.Published != nil {
		blog.Published = *req.Published
	}
	if err := database.DB.Omit("Counselor").Save(blog).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Blog updated", blog)
}

func DeleteBlog(c *fiber.Ctx) error {
	blog, err := loadOwnBlog(c)
	if err != nil {
		return err
	}
	if err := database.DB.Delete(blog).Error; err != nil {
		return err
	}
	return utils.Respond(c, fiber.StatusOK, "Blog deleted", nil)
}

func ListBlogs(c *fiber.Ctx) error {
	p := utils.ParsePage(c)
	query := database.DB.Model(&models.Blog{}).Where("published = ?", true)
	if tag := c.Query("tag"); tag != "" {
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	if author := c.Query("counselorId"); author != "" {
		query = query.Where("counselor_id = ?", author)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	var blogs []models.Blog
	err := query.Preload("Counselor").Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&blogs).Error
	if err != nil {
		return err
	}
	for i := range blogs {
		if blogs[i].Counselor != nil {
			blogs[i].Counselor = blogs[i].Counselor.Redacted()
		}
	}
	return utils.RespondPage(c, "Blogs fetched", blogs, p, total)
}

func GetBlog(c *fiber.Ctx) error {
	var blog models.Blog
	err := database.DB.Preload("Counselor").
		First(&blog, "slug = ? AND published = ?", c.Params("slug"), true).Error
	if err != nil {
		return apperrors.NotFound("Blog not found")
	}
	if blog.Counselor != nil {
		blog.Counselor = blog.Counselor.Redacted()
	}
	return utils.Respond(c, fiber.StatusOK, "Blog fetched", blog)
}

func AdminDeleteBlog(c *fiber.Ctx) error {
	id, err := paramUUID(c, "blogId")
	if err != nil {
		return err
	}
	res := database.DB.Delete(&models.Blog{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Blog not found")
	}
	return utils.Respond(c, fiber.StatusOK, "Blog deleted", nil)
}
