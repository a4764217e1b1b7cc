package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maruel/inkzone/internal/kv"
	"github.com/maruel/inkzone/internal/models"
	"github.com/maruel/inkzone/internal/storage"
)

// TestMessageType is the inquiry type of messages written by
// InjectTestMessage.
const TestMessageType = "Connectivity Test"

// InjectTestMessage prepends a test message to the stored messages, bypassing
// this context's in-memory collection. Like a message from another context, it
// only becomes visible through Messages once the watcher or the poll reads it
// back.
func (s *State) InjectTestMessage(ctx context.Context) (models.ContactMessage, error) {
	m := models.ContactMessage{
		ID:      "test-" + s.opts.NewID(),
		Name:    "System Test",
		Email:   "test@inkzone.com",
		Type:    TestMessageType,
		Message: "This is a simulated message to verify the real-time sync heartbeat. If you see this, the connection is active.",
		Date:    s.timestamp(),
	}
	coll := storage.NewCollection[models.ContactMessage](s.backend, storage.KeyMessages)
	rows, err := coll.Read(ctx)
	if errors.Is(err, kv.ErrNotFound) {
		rows, err = []models.ContactMessage{}, nil
	}
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("failed to read messages: %w", err)
	}
	if _, err := coll.Write(ctx, append([]models.ContactMessage{m}, rows...)); err != nil {
		return models.ContactMessage{}, fmt.Errorf("failed to write messages: %w", err)
	}
	slog.InfoContext(ctx, "Injected test message", "id", m.ID)
	return m, nil
}
