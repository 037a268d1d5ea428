// Package httpapi exposes compression over HTTP multipart uploads.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/compress"
	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// Response is the JSON envelope for errors and metadata responses.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type Options struct {
	Defaults          compress.Params
	Normalize         imaging.NormalizeOptions
	AllowedImageTypes []string
	MaxUploadBytes    int64
	Logger            *zap.Logger
}

// Handler serves the /image routes.
type Handler struct {
	compressor *compress.Compressor
	defaults   compress.Params
	allowed    map[string]bool
	maxUpload  int64
	logger     *zap.Logger
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make(map[string]bool, len(opts.AllowedImageTypes))
	for _, ext := range opts.AllowedImageTypes {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	return &Handler{
		compressor: compress.New(
			compress.WithLogger(logger),
			compress.WithNormalizeOptions(opts.Normalize),
		),
		defaults:  opts.Defaults,
		allowed:   allowed,
		maxUpload: opts.MaxUploadBytes,
		logger:    logger,
	}
}

// NewApp builds a fiber app with the image routes mounted under /image.
func NewApp(opts Options) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if opts.MaxUploadBytes > 0 {
		// headroom for the multipart envelope and form fields
		bodyLimit = int(opts.MaxUploadBytes) + 1<<20
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	app.Use(fiberrecover.New())
	NewHandler(opts).Mount(app.Group("/image"))
	return app
}

func (h *Handler) Mount(router fiber.Router) {
	router.Post("/compress", h.Compress)
	router.Post("/info", h.Info)
}

// Compress accepts a multipart upload and responds with the JPEG bytes.
// Optional form fields target_kb, quality and min_scale override the
// configured defaults. Result metadata is returned in X-Image-* headers.
func (h *Handler) Compress(c *fiber.Ctx) error {
	data, name, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}

	params, err := h.params(c)
	if err != nil {
		return h.fail(c, err)
	}

	res, err := h.compressor.Compress(context.Background(), compress.Request{
		Source: imaging.BytesSource{Name: name, Data: data},
		Params: params,
	})
	if err != nil {
		return h.fail(c, err)
	}

	c.Set("X-Image-Scale", strconv.FormatFloat(res.Scale, 'f', 4, 64))
	c.Set("X-Image-Size-KB", strconv.FormatFloat(res.SizeKB, 'f', 2, 64))
	c.Set("X-Image-Width", strconv.Itoa(res.Width))
	c.Set("X-Image-Height", strconv.Itoa(res.Height))
	c.Set("X-Image-Outcome", string(res.Outcome))
	c.Context().SetContentType("image/jpeg")
	return c.Status(fiber.StatusOK).Send(res.Data)
}

// Info accepts a multipart upload and responds with its metadata.
func (h *Handler) Info(c *fiber.Ctx) error {
	data, _, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, err)
	}

	info, err := imaging.Inspect(data)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(Response{
		Code:    fiber.StatusOK,
		Message: "ok",
		Data:    info,
	})
}

// uploadError is a client mistake in the upload itself.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func (h *Handler) readUpload(c *fiber.Ctx) ([]byte, string, error) {
	file, err := c.FormFile(FormField)
	if err != nil {
		return nil, "", &uploadError{status: fiber.StatusBadRequest, msg: fmt.Sprintf("missing %q file field: %v", FormField, err)}
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if len(h.allowed) > 0 && !h.allowed[ext] {
		types := make([]string, 0, len(h.allowed))
		for t := range h.allowed {
			types = append(types, t)
		}
		sort.Strings(types)
		return nil, "", &uploadError{
			status: fiber.StatusBadRequest,
			msg:    fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(types, ", ")),
		}
	}

	if h.maxUpload > 0 && file.Size > h.maxUpload {
		return nil, "", &uploadError{
			status: fiber.StatusBadRequest,
			msg:    fmt.Sprintf("file too large: %d bytes, limit %d bytes", file.Size, h.maxUpload),
		}
	}

	f, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return data, file.Filename, nil
}

func (h *Handler) params(c *fiber.Ctx) (compress.Params, error) {
	p := h.defaults

	parse := func(key string, dst *float64) error {
		v := c.FormValue(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &uploadError{status: fiber.StatusBadRequest, msg: fmt.Sprintf("%s: not a number: %q", key, v)}
		}
		*dst = f
		return nil
	}

	if err := parse("target_kb", &p.TargetKB); err != nil {
		return p, err
	}
	if err := parse("min_scale", &p.MinScale); err != nil {
		return p, err
	}
	if v := c.FormValue("quality"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return p, &uploadError{status: fiber.StatusBadRequest, msg: fmt.Sprintf("quality: not an integer: %q", v)}
		}
		p.Quality = q
	}
	return p, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		upErr    *uploadError
		reqErr   *compress.InvalidRequestError
		srcErr   *imaging.SourceUnavailableError
		decErr   *imaging.DecodeError
		shapeErr *imaging.UnsupportedShapeError
		typeErr  *imaging.InvalidTypeError
	)
	switch {
	case errors.As(err, &upErr):
		return upErr.status
	case errors.As(err, &reqErr), errors.As(err, &srcErr), errors.As(err, &decErr):
		return fiber.StatusBadRequest
	case errors.As(err, &shapeErr), errors.As(err, &typeErr):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.Status(status).JSON(Response{
		Code:    status,
		Message: err.Error(),
	})
}
