package storage

import (
	"os"

	"backend-avltrack/internal/shapefile"

	"github.com/gofiber/fiber/v2"
)

var notFoundMessages = map[string]string{
	"shp": "Shapefile not found",
	"shx": "Shapefile index not found",
	"dbf": "Shapefile attributes not found",
	"prj": "Shapefile projection not found",
}

// RegisterRoutes serves saved bundle members at /export_{ext}/:device_id.
func RegisterRoutes(r fiber.Router, svc *Service) {
	for _, ext := range shapefile.Extensions {
		r.Get("/export_"+ext+"/:device_id", downloadHandler(svc, ext))
	}
}

func downloadHandler(svc *Service, ext string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := c.Params("device_id")
		path, err := svc.Path(deviceID, ext)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := os.Stat(path); err != nil {
			return fiber.NewError(fiber.StatusNotFound, notFoundMessages[ext])
		}
		return c.Download(path, FileName(deviceID, ext))
	}
}
