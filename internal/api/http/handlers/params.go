package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// pathID reads a positive integer path parameter. Anything else is treated
// as an unmatched route.
func pathID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fiber.ErrNotFound
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return id, nil
}
