package devapi

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/John-Robertt/closetube/internal/domain"
)

// Options 配置开发服务器。
type Options struct {
	// Seed 为 nil 时服务器从空列表开始。
	Seed []domain.Video
	// CORSOrigins 为空时允许任意来源。
	CORSOrigins []string
	Logger      log.Logger
	Now         func() time.Time
	// NewID 生成视频与评论 id；为空时使用 uuid。
	NewID func() string
}

// New 构造实现 CloseTube REST API 的 fiber 应用（数据只在内存中）。
func New(opts Options) *fiber.App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.NewStdLogger(io.Discard)
	}
	h := &handler{
		state: newMemState(opts.Seed, opts.Now, opts.NewID),
		now:   opts.Now,
		log:   log.NewHelper(opts.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "CloseTube API",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          errorHandler,
	})

	origins := "*"
	if len(opts.CORSOrigins) > 0 {
		origins = strings.Join(opts.CORSOrigins, ",")
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))
	app.Use(h.accessLog)

	app.Get("/", h.root)
	app.Get("/health", h.health)
	app.Get("/videos", h.listVideos)
	app.Post("/videos", h.createVideo)
	app.Post("/videos/:id/view", h.view)
	app.Post("/videos/:id/like", h.like)
	app.Get("/videos/:id/comments", h.listComments)
	app.Post("/videos/:id/comments", h.addComment)
	return app
}

// ParseOrigins 解析 CORS_ORIGINS（逗号分隔）。
func ParseOrigins(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type handler struct {
	state *memState
	now   func() time.Time
	log   *log.Helper
}

type errorBody struct {
	Error  string              `json:"error"`
	Fields []fieldErrorPayload `json:"fields,omitempty"`
}

type fieldErrorPayload struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorBody{Error: err.Error()})
}

func (h *handler) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	h.log.Infow("method", c.Method(), "path", c.Path(), "status", status, "latency_ms", time.Since(start).Milliseconds())
	return err
}

func (h *handler) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "CloseTube API is running!", "status": "healthy"})
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "timestamp": h.now().UTC().Format(time.RFC3339Nano)})
}

func (h *handler) listVideos(c *fiber.Ctx) error {
	return c.JSON(h.state.list(c.Query("group")))
}

func (h *handler) createVideo(c *fiber.Ctx) error {
	// 未给出的 privacy 字段沿用上传表单的默认值（两项都开启）。
	d := domain.NewUploadData()
	if err := c.BodyParser(&d); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体不是合法的 JSON："+err.Error())
	}
	if err := d.Validate(); err != nil {
		return validationResponse(c, err)
	}
	v := h.state.create(d)
	h.log.Infow("msg", "新增视频", "id", v.ID, "group", v.Group)
	return c.Status(fiber.StatusCreated).JSON(v)
}

func (h *handler) view(c *fiber.Ctx) error {
	v, ok := h.state.bump(c.Params("id"), func(v *domain.Video) { v.Views++ })
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "video not found")
	}
	return c.JSON(v)
}

func (h *handler) like(c *fiber.Ctx) error {
	v, ok := h.state.bump(c.Params("id"), func(v *domain.Video) { v.Likes++ })
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "video not found")
	}
	return c.JSON(v)
}

func (h *handler) listComments(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.state.exists(id) {
		return fiber.NewError(fiber.StatusNotFound, "video not found")
	}
	return c.JSON(h.state.listComments(id))
}

func (h *handler) addComment(c *fiber.Ctx) error {
	var in domain.CommentInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "请求体不是合法的 JSON："+err.Error())
	}
	if err := in.Validate(); err != nil {
		return validationResponse(c, err)
	}
	cm, ok := h.state.addComment(c.Params("id"), in)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "video not found")
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}

func validationResponse(c *fiber.Ctx, err error) error {
	body := errorBody{Error: "校验失败"}
	for _, fe := range domain.ValidationFields(err) {
		body.Fields = append(body.Fields, fieldErrorPayload{Field: fe.Field, Reason: fe.Reason})
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}
