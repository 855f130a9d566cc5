package tracking

import (
	"errors"

	"backend-avltrack/internal/observability"
	"backend-avltrack/internal/shapefile"

	"github.com/gofiber/fiber/v2"
)

const insufficientDataMessage = "Not enough path data to export (need at least 2 points)"

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/location", func(c *fiber.Ctx) error {
		var req LocationUpdate
		if err := c.BodyParser(&req); err != nil {
			observability.FixesRejected.Inc()
			return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON: "+err.Error())
		}
		fix, err := svc.ParseFix(req)
		if err != nil {
			observability.FixesRejected.Inc()
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := svc.UpdateLocation(c.Context(), fix); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"status": "success"})
	})

	r.Get("/locations", func(c *fiber.Ctx) error {
		locations, err := svc.Locations(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(locations)
	})

	r.Post("/toggle_recording", authMiddleware, func(c *fiber.Ctx) error {
		var req ToggleRequest
		if err := c.BodyParser(&req); err != nil || req.DeviceID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}

		switch req.Action {
		case "start":
			svc.StartRecording(req.DeviceID)
			return c.JSON(fiber.Map{"status": "success", "recording": true})
		case "stop":
			exp, err := svc.StopRecording(c.Context(), req.DeviceID)
			if err != nil {
				return exportError(err)
			}
			return c.JSON(exportResponse(c, exp, "Recording stopped. Shapefile saved on server."))
		case "export":
			exp, err := svc.ExportLastSession(c.Context(), req.DeviceID)
			if err != nil {
				return exportError(err)
			}
			return c.JSON(exportResponse(c, exp, "Shapefile saved on server."))
		}
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
	})

	r.Get("/recording/:device_id", func(c *fiber.Ctx) error {
		deviceID := c.Params("device_id")
		return c.JSON(fiber.Map{"device_id": deviceID, "recording": svc.IsRecording(deviceID)})
	})

	r.Get("/path/:device_id", func(c *fiber.Ctx) error {
		return c.JSON(svc.Path(c.Params("device_id")))
	})
}

func exportResponse(c *fiber.Ctx, exp Export, message string) fiber.Map {
	base := c.BaseURL() + "/api"
	links := fiber.Map{}
	for _, ext := range shapefile.Extensions {
		links[ext] = base + "/export_" + ext + "/" + exp.DeviceID + "/"
	}
	return fiber.Map{
		"status":         "success",
		"device_id":      exp.DeviceID,
		"points":         exp.Points,
		"message":        message,
		"download_links": links,
	}
}

func exportError(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientTrackData):
		return fiber.NewError(fiber.StatusBadRequest, insufficientDataMessage)
	case errors.Is(err, ErrNotRecording):
		return fiber.NewError(fiber.StatusConflict, "Device is not recording")
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
