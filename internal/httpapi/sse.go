package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"seoscan/internal/eventbus"
	"seoscan/internal/model"
)

type liveMessage struct {
	Type   string           `json:"type"`
	Events []model.TaskEvent `json:"events,omitempty"`
	Event  *model.TaskEvent  `json:"event,omitempty"`
}

// liveProgressHandler implements GET /api/scans/progress/live. It is
// scoped to a single job via the required jobId query parameter,
// since the task-event bus's recent-events lookup is per-job.
func liveProgressHandler(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Query("jobId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResponse("BAD_REQUEST", "jobId query parameter is required"))
	}

	bus := c.Locals("bus").(*eventbus.Bus)

	recent, err := bus.RecentEvents(c.Context(), jobID, 25)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errResponse("EVENT_LOOKUP_FAILED", err.Error()))
	}

	ch, unsubscribe := bus.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if !writeSSE(w, liveMessage{Type: "init", Events: recent}) {
			return
		}

		for ev := range ch {
			if ev.JobID != jobID.String() {
				continue
			}
			if !writeSSE(w, liveMessage{Type: "event", Event: &ev}) {
				return
			}
		}
	})

	return nil
}

func writeSSE(w *bufio.Writer, msg liveMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	return w.Flush() == nil
}
