package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"imageclip/geom"
	"imageclip/widget"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir          string
	Defaults         widgetFlags
	Renderer         *ImagingRenderer
	Executor         OperationExecutor
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnSave           func(path string)
}

// session is one widget hosted for the browser, bound to a source file.
type session struct {
	file   string
	widget *widget.Widget
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	// All widgets share one pointer stream: the browser.
	arbiter  *widget.Arbiter
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
		arbiter:    widget.NewArbiter(),
		sessions:   make(map[uuid.UUID]*session),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.routes(ctx)

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("failed to shutdown web application: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		a.Shutdown()
		return nil
	})

	return p.Wait()
}

func errorStatus(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, geom.ErrInvalidAnchor),
		errors.Is(err, geom.ErrInvalidGesture),
		errors.Is(err, geom.ErrInvalidLength),
		errors.Is(err, errInvalidColor),
		errors.Is(err, errOutsideRoot),
		errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, widget.ErrNoImage):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

func (a *WebApp) routes(ctx context.Context) *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, msg := errorStatus(err)
			if code == http.StatusNotFound && c.Path() == "/favicon.ico" {
				return nil
			}
			log.Ctx(c.UserContext()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
	})

	webapp.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(ctx)
		return c.Next()
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(c.UserContext(), a.config.RootDir, a.config.Executor.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
		}

		return c.JSON(dir)
	})

	api := webapp.Group("/api/widgets")
	api.Post("/", a.createWidget)
	api.Get("/:id", func(c *fiber.Ctx) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		return c.JSON(s.widget.State())
	})
	api.Delete("/:id", func(c *fiber.Ctx) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		a.mu.Lock()
		delete(a.sessions, s.widget.ID())
		a.mu.Unlock()
		return c.SendStatus(http.StatusNoContent)
	})
	api.Post("/:id/start", a.startGesture)
	api.Post("/:id/move", a.moveGesture)
	api.Post("/:id/end", func(c *fiber.Ctx) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		s.widget.End()
		return c.JSON(s.widget.State())
	})
	api.Put("/:id/crop", func(c *fiber.Ctx) error {
		s, err := a.session(c)
		if err != nil {
			return err
		}
		var crop geom.Rect
		if err := c.BodyParser(&crop); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := s.widget.SetNaturalCrop(crop); err != nil {
			return err
		}
		return c.JSON(s.widget.State())
	})
	api.Get("/:id/export", a.exportWidget)
	api.Post("/:id/save", a.saveWidget)

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) session(c *fiber.Ctx) (*session, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid widget id")
	}
	a.mu.RLock()
	s, ok := a.sessions[id]
	a.mu.RUnlock()
	if !ok {
		return nil, fiber.ErrNotFound
	}
	return s, nil
}

type createWidgetRequest struct {
	File           string       `json:"file"`
	ContainerWidth float64      `json:"container_width"`
	Ratio          *float64     `json:"ratio"`
	Overflow       *bool        `json:"overflow"`
	MinWidth       *geom.Length `json:"min_width"`
	MinHeight      *geom.Length `json:"min_height"`
}

func (a *WebApp) createWidget(c *fiber.Ctx) error {
	var request createWidgetRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if request.File == "" || request.ContainerWidth <= 0 {
		return fiber.NewError(http.StatusBadRequest, "file and container_width are required")
	}
	if !filepath.IsLocal(filepath.FromSlash(request.File)) {
		return fmt.Errorf("%w: %q", errOutsideRoot, request.File)
	}

	flags := a.config.Defaults
	if request.Ratio != nil {
		flags.Ratio = *request.Ratio
	}
	if request.Overflow != nil {
		flags.Overflow = *request.Overflow
	}
	if request.MinWidth != nil {
		flags.MinWidth = *request.MinWidth
	}
	if request.MinHeight != nil {
		flags.MinHeight = *request.MinHeight
	}
	if err := flags.validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	opts := flags.options(a.arbiter)
	opts.OnChange = func(crop widget.Crop) {
		log.Ctx(ctx).Debug().Str("file", request.File).Interface("crop", crop).Msg("crop changed")
	}
	w := widget.New(opts)
	if err := w.Load(ctx, a.config.Renderer, request.File, request.ContainerWidth); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("file", request.File).Msg("cannot create widget")
		return fiber.NewError(http.StatusUnprocessableEntity, widget.ErrCodeImageLoadFail)
	}

	a.mu.Lock()
	a.sessions[w.ID()] = &session{file: request.File, widget: w}
	a.mu.Unlock()

	return c.Status(http.StatusCreated).JSON(w.State())
}

type gestureRequest struct {
	// Gesture is move, scale or pinch.
	Gesture string         `json:"gesture"`
	Anchor  string         `json:"anchor"`
	Points  []widget.Point `json:"points"`
}

func (a *WebApp) startGesture(c *fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}
	var request gestureRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if request.Gesture == "pinch" {
		if len(request.Points) != 2 {
			return fiber.NewError(http.StatusBadRequest, "pinch needs two points")
		}
		if err := s.widget.PinchStart(request.Points[0], request.Points[1]); err != nil {
			return err
		}
		return c.JSON(s.widget.State())
	}

	if len(request.Points) != 1 {
		return fiber.NewError(http.StatusBadRequest, "gesture needs one point")
	}
	gesture, err := geom.ParseGesture(request.Gesture)
	if err != nil {
		return err
	}
	switch gesture {
	case geom.GestureMove:
		err = s.widget.DragStart(request.Points[0])
	case geom.GestureScale:
		var anchor geom.Anchor
		if anchor, err = geom.ParseAnchor(request.Anchor); err == nil {
			err = s.widget.ResizeStart(anchor, request.Points[0])
		}
	}
	if err != nil {
		return err
	}
	return c.JSON(s.widget.State())
}

func (a *WebApp) moveGesture(c *fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}
	var request gestureRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	switch len(request.Points) {
	case 1:
		s.widget.Move(request.Points[0])
	case 2:
		s.widget.PinchMove(request.Points[0], request.Points[1])
	default:
		return fiber.NewError(http.StatusBadRequest, "move needs one or two points")
	}
	return c.JSON(s.widget.State())
}

func (a *WebApp) exportRequest(c *fiber.Ctx, s *session) (widget.ExportRequest, error) {
	d := a.config.Defaults
	return s.widget.ExportRequest(
		c.Query("type", d.Format),
		c.QueryFloat("quality", d.Quality),
		c.Query("fill", d.Fill),
	)
}

func (a *WebApp) exportWidget(c *fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}
	req, err := a.exportRequest(c, s)
	if err != nil {
		return err
	}

	f, err := openInRoot(a.config.RootDir, s.file)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", s.file, err)
	}
	defer f.Close()

	var b bytes.Buffer
	if err := a.config.Renderer.Export(c.UserContext(), f, &b, req); err != nil {
		return err
	}
	mime := contentType(req.Format)
	if c.Query("encoding") == "base64" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b.Bytes()))
	}
	c.Set(fiber.HeaderContentType, mime)
	return c.Send(b.Bytes())
}

func (a *WebApp) saveWidget(c *fiber.Ctx) error {
	s, err := a.session(c)
	if err != nil {
		return err
	}
	req, err := a.exportRequest(c, s)
	if err != nil {
		return err
	}
	path, err := a.config.Executor.Exec(c.UserContext(), SaveOperation{Filename: s.file, Request: req})
	if err != nil {
		return err
	}
	if fn := a.config.OnSave; fn != nil {
		fn(path)
	}
	return c.JSON(fiber.Map{"path": path})
}
