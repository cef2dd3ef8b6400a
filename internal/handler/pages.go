package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Contact lists the support channels.
func (h *Handler) Contact(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"view":     "contact",
		"whatsapp": h.Site.ContactWhatsApp,
		"link":     "https://wa.me/" + h.Site.ContactWhatsApp,
	})
}

// Privacy returns the privacy notice.
func (h *Handler) Privacy(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"view": "privacy",
		"sections": []echo.Map{
			{"title": "Data we keep", "body": "Your name, phone, email, balance and order history."},
			{"title": "How it is used", "body": "Only to process your orders and top-up requests."},
			{"title": "Sessions", "body": "A signed cookie identifies your session; it holds no personal data."},
		},
	})
}
