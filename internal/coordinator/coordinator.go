package coordinator

import (
	"context"
	"errors"
	"log"

	"go-roundflow/internal/core/ports"
	"go-roundflow/internal/domain"
)

// Coordinator records phase transitions published by the workers. It is the
// only writer of a run's phase list.
type Coordinator struct {
	runRepo  ports.RunRepository
	eventBus ports.EventBus
}

func NewCoordinator(runRepo ports.RunRepository, bus ports.EventBus) *Coordinator {
	return &Coordinator{
		runRepo:  runRepo,
		eventBus: bus,
	}
}

// Start runs the listening loop until ctx is done. Call this in main.go as a goroutine.
func (c *Coordinator) Start(ctx context.Context) error {
	log.Println("Coordinator started, listening for phase events...")

	eventChannel, err := c.eventBus.SubscribeToEvents(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Coordinator shutting down...")
			return nil

		case event, ok := <-eventChannel:
			if !ok {
				log.Println("Coordinator: event stream closed")
				return ctx.Err()
			}
			c.handlePhaseTransition(ctx, event)
		}
	}
}

func (c *Coordinator) handlePhaseTransition(ctx context.Context, event domain.PhaseTransitionEvent) {
	err := c.runRepo.ApplyTransition(ctx, event)
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		log.Printf("Coordinator: dropping event %s for unknown run %s", event.EventID, event.RunID)
	case err != nil:
		log.Printf("Coordinator: failed to record %s %s -> %s for run %s: %v", event.Kind, event.Phase, event.To, event.RunID, err)
	default:
		log.Printf("Coordinator: run %s gen %d %s -> %s", event.RunID, event.Generation, event.Phase, event.To)
	}
}
