package httpserver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/quicktrans/quicktransd/internal/app"
	"github.com/quicktrans/quicktransd/internal/httpserver/httputil"
	"github.com/quicktrans/quicktransd/internal/langdetect"
	"github.com/quicktrans/quicktransd/internal/models"
	"github.com/quicktrans/quicktransd/internal/settings"
)

// envelopeMeta is the shared head of terminal payloads. Errors travel
// inside the envelope rather than as bare HTTP failures so streaming and
// non-streaming clients share one result contract.
type envelopeMeta struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type translateEnvelope struct {
	envelopeMeta
	*models.TranslateResult
}

type dictionaryEnvelope struct {
	envelopeMeta
	*models.DictionaryResult
}

func errorEnvelope(err error) envelopeMeta {
	return envelopeMeta{
		Success:      false,
		ErrorCode:    string(models.ErrorCodeOf(err)),
		ErrorMessage: err.Error(),
	}
}

type routeHandler struct {
	container *app.Container
}

func registerRoutes(fiberApp *fiber.App, container *app.Container) {
	h := &routeHandler{container: container}

	v1 := fiberApp.Group("/v1")

	v1.Post("/translate", h.translate)
	v1.Post("/dictionary", h.dictionary)
	v1.Post("/tts", h.tts)
	v1.Get("/languages", h.languages)

	apiConfigs := v1.Group("/settings/api-configs")
	apiConfigs.Get("/", h.listAPIConfigs)
	apiConfigs.Post("/", h.addAPIConfig)
	apiConfigs.Post("/test", h.testAPIConfig)
	apiConfigs.Put("/:id", h.updateAPIConfig)
	apiConfigs.Delete("/:id", h.deleteAPIConfig)
	apiConfigs.Post("/:id/activate", h.activateAPIConfig)

	ttsConfigs := v1.Group("/settings/tts-configs")
	ttsConfigs.Get("/", h.listTTSConfigs)
	ttsConfigs.Post("/", h.addTTSConfig)
	ttsConfigs.Post("/test", h.testTTSConfig)
	ttsConfigs.Put("/:id", h.updateTTSConfig)
	ttsConfigs.Delete("/:id", h.deleteTTSConfig)
	ttsConfigs.Post("/:id/activate", h.activateTTSConfig)

	v1.Get("/usage/tokens", h.usageTotals)
	v1.Post("/usage/tokens/reset", h.usageReset)

	v1.Get("/cache/stats", h.cacheStats)
	v1.Delete("/cache", h.cacheClear)
}

// --- translate / dictionary ---

func (h *routeHandler) translate(c *fiber.Ctx) error {
	var req models.TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" || req.TargetLanguage == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "text and target_language are required")
	}

	ctx := c.UserContext()
	if !req.Stream {
		result, err := h.container.Translate.Translate(ctx, req, nil)
		if err != nil {
			return c.Status(httputil.StatusForCode(models.ErrorCodeOf(err))).JSON(errorEnvelope(err))
		}
		return c.JSON(translateEnvelope{envelopeMeta{Success: true}, result})
	}

	h.streamResult(c, func(onDelta models.DeltaFunc) any {
		result, err := h.container.Translate.Translate(ctx, req, onDelta)
		if err != nil {
			return errorEnvelope(err)
		}
		return translateEnvelope{envelopeMeta{Success: true}, result}
	})
	return nil
}

func (h *routeHandler) dictionary(c *fiber.Ctx) error {
	var req models.DictionaryRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Word == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "word is required")
	}

	ctx := c.UserContext()
	if !req.Stream {
		result, err := h.container.Translate.LookupWord(ctx, req, nil)
		if err != nil {
			return c.Status(httputil.StatusForCode(models.ErrorCodeOf(err))).JSON(errorEnvelope(err))
		}
		return c.JSON(dictionaryEnvelope{envelopeMeta{Success: true}, result})
	}

	h.streamResult(c, func(onDelta models.DeltaFunc) any {
		result, err := h.container.Translate.LookupWord(ctx, req, onDelta)
		if err != nil {
			return errorEnvelope(err)
		}
		return dictionaryEnvelope{envelopeMeta{Success: true}, result}
	})
	return nil
}

// streamResult emits the SSE envelope: chunk frames while run produces
// deltas, exactly one complete frame, then the DONE sentinel.
func (h *routeHandler) streamResult(c *fiber.Ctx, run func(models.DeltaFunc) any) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		writeFrame := func(payload any) {
			data, err := json.Marshal(payload)
			if err != nil {
				slog.Error("encoding stream frame", slog.String("error", err.Error()))
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			_ = w.Flush()
		}

		envelope := run(func(chunk, fullText string) {
			writeFrame(fiber.Map{
				"type":     "chunk",
				"chunk":    chunk,
				"fullText": fullText,
			})
		})

		writeFrame(fiber.Map{
			"type":   "complete",
			"result": envelope,
		})
		fmt.Fprint(w, "data: [DONE]\n\n")
		_ = w.Flush()
	})
}

// --- tts ---

func (h *routeHandler) tts(c *fiber.Ctx) error {
	var req models.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "text is required")
	}

	result, err := h.container.TTS.Synthesize(c.UserContext(), req.Text)
	if err != nil {
		return c.Status(httputil.StatusForCode(models.ErrorCodeOf(err))).JSON(errorEnvelope(err))
	}

	c.Set("Content-Type", result.ContentType)
	c.Set("X-Audio-Format", result.Format)
	return c.Send(result.Bytes)
}

// --- languages ---

func (h *routeHandler) languages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"languages": langdetect.All()})
}

// --- settings: api configs ---

func (h *routeHandler) listAPIConfigs(c *fiber.Ctx) error {
	configs, err := h.container.Settings.ListAPIConfigs(c.UserContext())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"configs": configs})
}

func (h *routeHandler) addAPIConfig(c *fiber.Ctx) error {
	var cfg settings.APIConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if cfg.Endpoint == "" || cfg.Model == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "endpoint and model are required")
	}
	saved, err := h.container.Settings.AddAPIConfig(c.UserContext(), cfg)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *routeHandler) updateAPIConfig(c *fiber.Ctx) error {
	var cfg settings.APIConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	saved, err := h.container.Settings.UpdateAPIConfig(c.UserContext(), c.Params("id"), cfg)
	if err != nil {
		return settingsError(c, err)
	}
	return c.JSON(saved)
}

func (h *routeHandler) deleteAPIConfig(c *fiber.Ctx) error {
	if err := h.container.Settings.DeleteAPIConfig(c.UserContext(), c.Params("id")); err != nil {
		return settingsError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *routeHandler) activateAPIConfig(c *fiber.Ctx) error {
	if err := h.container.Settings.ActivateAPIConfig(c.UserContext(), c.Params("id")); err != nil {
		return settingsError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// testAPIConfig verifies a candidate config end to end with a one-line
// translation before the user commits to it.
func (h *routeHandler) testAPIConfig(c *fiber.Ctx) error {
	var cfg settings.APIConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if cfg.Endpoint == "" || cfg.Model == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "endpoint and model are required")
	}
	if err := h.container.Translate.TestConfig(c.UserContext(), cfg); err != nil {
		return c.Status(httputil.StatusForCode(models.ErrorCodeOf(err))).JSON(errorEnvelope(err))
	}
	return c.JSON(fiber.Map{"success": true})
}

// --- settings: tts configs ---

func (h *routeHandler) listTTSConfigs(c *fiber.Ctx) error {
	configs, err := h.container.Settings.ListTTSConfigs(c.UserContext())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"configs": configs})
}

func (h *routeHandler) addTTSConfig(c *fiber.Ctx) error {
	var cfg settings.TTSConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if cfg.Endpoint == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "endpoint is required")
	}
	saved, err := h.container.Settings.AddTTSConfig(c.UserContext(), cfg)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *routeHandler) updateTTSConfig(c *fiber.Ctx) error {
	var cfg settings.TTSConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	saved, err := h.container.Settings.UpdateTTSConfig(c.UserContext(), c.Params("id"), cfg)
	if err != nil {
		return settingsError(c, err)
	}
	return c.JSON(saved)
}

func (h *routeHandler) deleteTTSConfig(c *fiber.Ctx) error {
	if err := h.container.Settings.DeleteTTSConfig(c.UserContext(), c.Params("id")); err != nil {
		return settingsError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *routeHandler) activateTTSConfig(c *fiber.Ctx) error {
	if err := h.container.Settings.ActivateTTSConfig(c.UserContext(), c.Params("id")); err != nil {
		return settingsError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *routeHandler) testTTSConfig(c *fiber.Ctx) error {
	var cfg settings.TTSConfig
	if err := c.BodyParser(&cfg); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if cfg.Endpoint == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "endpoint is required")
	}
	result, err := h.container.TTS.SynthesizeWith(c.UserContext(), cfg, "Hello")
	if err != nil {
		return c.Status(httputil.StatusForCode(models.ErrorCodeOf(err))).JSON(errorEnvelope(err))
	}
	return c.JSON(fiber.Map{"success": true, "format": result.Format})
}

func settingsError(c *fiber.Ctx, err error) error {
	if errors.Is(err, settings.ErrNotFound) {
		return httputil.WriteError(c, fiber.StatusNotFound, "config not found")
	}
	return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
}

// --- usage ---

func (h *routeHandler) usageTotals(c *fiber.Ctx) error {
	totals, err := h.container.Usage.Totals(c.UserContext())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(totals)
}

func (h *routeHandler) usageReset(c *fiber.Ctx) error {
	if err := h.container.Usage.Reset(c.UserContext()); err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- cache ---

func (h *routeHandler) cacheStats(c *fiber.Ctx) error {
	stats, err := h.container.Cache.Stats(c.UserContext())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(stats)
}

func (h *routeHandler) cacheClear(c *fiber.Ctx) error {
	deleted, err := h.container.Cache.Clear(c.UserContext())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
